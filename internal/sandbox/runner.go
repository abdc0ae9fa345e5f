// internal/sandbox/runner.go
package sandbox

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"api-insights/internal/common/config"
	apperrors "api-insights/internal/common/errors"
	"api-insights/internal/common/logger"
	"api-insights/internal/common/metrics"
	"api-insights/internal/models"
)

// stderrTailBytes bounds how much stderr is carried into error details.
const stderrTailBytes = 2048

// Executor runs a synthesized analysis program against a dataset bundle.
type Executor interface {
	Execute(ctx context.Context, program models.SynthesizedProgram, bundle *models.DatasetBundle) (models.ExecutionResult, error)
}

// Runner executes synthesized programs as short-lived interpreter
// subprocesses. Each invocation gets its own temporary directory and a
// unique script name, so concurrent executions never share artifacts.
type Runner struct {
	interpreter    string
	timeout        time.Duration
	workDir        string
	maxOutputBytes int64
	logger         logger.Logger
}

func NewRunner(cfg config.SandboxConfig, log logger.Logger) *Runner {
	return &Runner{
		interpreter:    cfg.Interpreter,
		timeout:        time.Duration(cfg.Timeout) * time.Millisecond,
		workDir:        cfg.WorkDir,
		maxOutputBytes: cfg.MaxOutputBytes,
		logger:         log.WithFields(map[string]interface{}{"component": "sandbox"}),
	}
}

// Execute runs the program once and enforces the stdout result contract.
// The returned result may carry a program-level error in its Error
// field; that is a successful execution of a failing program, not an
// execution failure.
func (r *Runner) Execute(ctx context.Context, program models.SynthesizedProgram, bundle *models.DatasetBundle) (models.ExecutionResult, error) {
	metrics.SandboxExecutionsActive.Inc()
	defer metrics.SandboxExecutionsActive.Dec()

	runDir, err := os.MkdirTemp(r.workDir, "analysis-run-")
	if err != nil {
		return models.ExecutionResult{}, apperrors.NewExecutionContractViolationError(fmt.Sprintf("cannot create run directory: %v", err))
	}
	defer os.RemoveAll(runDir)

	scriptPath := filepath.Join(runDir, "analysis-"+uuid.New().String()+".py")
	if err := os.WriteFile(scriptPath, []byte(buildScript(program.SourceText)), 0o600); err != nil {
		return models.ExecutionResult{}, apperrors.NewExecutionContractViolationError(fmt.Sprintf("cannot write program: %v", err))
	}

	input, err := json.Marshal(bundle.Datasets)
	if err != nil {
		return models.ExecutionResult{}, apperrors.NewExecutionContractViolationError(fmt.Sprintf("cannot encode bundle: %v", err))
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, r.interpreter, scriptPath)
	cmd.Dir = runDir
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// The program gets no ambient credentials, only an interpreter path
	// and a writable scratch directory.
	cmd.Env = []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + runDir,
		"TMPDIR=" + runDir,
		"LC_ALL=C.UTF-8",
	}

	started := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(started)

	if ctxErr := runCtx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			r.logger.Warn("sandboxed execution timed out", map[string]interface{}{
				"timeout": r.timeout.String(),
			})
			return models.ExecutionResult{}, apperrors.NewExecutionTimeoutError(r.timeout)
		}
		// The caller went away; the program did nothing wrong.
		r.logger.Warn("sandboxed execution canceled", nil)
		return models.ExecutionResult{}, ctxErr
	}

	if runErr != nil {
		// The harness converts program exceptions into valid results, so
		// a nonzero exit means the script never reached the harness
		// (interpreter missing, syntax error in the generated source).
		details := fmt.Sprintf("interpreter exited abnormally: %v", runErr)
		if tail := stderrTail(stderr.Bytes()); tail != "" {
			details += "; stderr: " + tail
		}
		return models.ExecutionResult{}, apperrors.NewExecutionContractViolationError(details)
	}

	if int64(stdout.Len()) > r.maxOutputBytes {
		return models.ExecutionResult{}, apperrors.NewExecutionContractViolationError(
			fmt.Sprintf("stdout exceeds %d bytes", r.maxOutputBytes))
	}

	if ok, violation := validateResult(stdout.Bytes()); !ok {
		details := violation
		if tail := stderrTail(stderr.Bytes()); tail != "" {
			details += "; stderr: " + tail
		}
		return models.ExecutionResult{}, apperrors.NewExecutionContractViolationError(details)
	}

	var result models.ExecutionResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return models.ExecutionResult{}, apperrors.NewExecutionContractViolationError("cannot decode validated result: " + err.Error())
	}

	// A chart, when present, must decode to actual image bytes.
	if result.Chart != "" {
		decoded, err := base64.StdEncoding.DecodeString(result.Chart)
		if err != nil || len(decoded) == 0 {
			return models.ExecutionResult{}, apperrors.NewExecutionContractViolationError("chart is not a non-empty base64 payload")
		}
	}

	r.logger.Info("sandboxed execution completed", map[string]interface{}{
		"duration":     elapsed.String(),
		"programError": result.Error != "",
		"insights":     len(result.Insights),
		"hasChart":     result.Chart != "",
	})

	return result, nil
}

func stderrTail(raw []byte) string {
	if len(raw) > stderrTailBytes {
		raw = raw[len(raw)-stderrTailBytes:]
	}
	return string(bytes.TrimSpace(raw))
}
