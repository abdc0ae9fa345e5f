// internal/sandbox/runner_test.go
package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api-insights/internal/common/config"
	apperrors "api-insights/internal/common/errors"
	"api-insights/internal/common/logger"
	"api-insights/internal/models"
)

// fakeInterpreter writes a shell script that stands in for the real
// interpreter, so runner behavior can be tested without one installed.
func fakeInterpreter(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake interpreter scripts need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "interpreter.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func newTestRunner(t *testing.T, interpreter string, timeoutMs int) *Runner {
	t.Helper()
	return NewRunner(config.SandboxConfig{
		Interpreter:    interpreter,
		Timeout:        timeoutMs,
		WorkDir:        t.TempDir(),
		MaxOutputBytes: 1 << 20,
	}, logger.NewNoOpLogger())
}

func testProgram() models.SynthesizedProgram {
	return models.SynthesizedProgram{SourceText: "def analyze(bundle):\n    return {}\n"}
}

func testBundle() *models.DatasetBundle {
	bundle := models.NewDatasetBundle()
	bundle.Add(models.Dataset{
		ToolID:  "traffic-data",
		Records: []models.Record{{"totalHits": 12.0}},
		Schema:  models.Schema{{Name: "totalHits", Type: "long"}},
	})
	return bundle
}

func assertErrorCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, code, stdErr.Code)
}

func TestExecuteReturnsValidResult(t *testing.T) {
	interpreter := fakeInterpreter(t,
		`printf '{"error":"","insights":["traffic doubled"],"chart":"","data":{"total":12}}'`)
	runner := newTestRunner(t, interpreter, 5000)

	result, err := runner.Execute(context.Background(), testProgram(), testBundle())
	require.NoError(t, err)
	assert.Equal(t, []string{"traffic doubled"}, result.Insights)
	assert.Equal(t, 12.0, result.Data["total"])
	assert.Empty(t, result.Error)
}

func TestExecutePassesBundleOnStdin(t *testing.T) {
	interpreter := fakeInterpreter(t,
		`input=$(cat)
case "$input" in
  *traffic-data*) printf '{"insights":["saw bundle"],"data":{}}' ;;
  *) printf '{"insights":[],"data":{"missing":true}}' ;;
esac`)
	runner := newTestRunner(t, interpreter, 5000)

	result, err := runner.Execute(context.Background(), testProgram(), testBundle())
	require.NoError(t, err)
	assert.Equal(t, []string{"saw bundle"}, result.Insights)
}

func TestExecuteProgramErrorIsNotAnExecutionFailure(t *testing.T) {
	interpreter := fakeInterpreter(t,
		`printf '{"error":"KeyError: responseCode","insights":[],"data":{}}'`)
	runner := newTestRunner(t, interpreter, 5000)

	result, err := runner.Execute(context.Background(), testProgram(), testBundle())
	require.NoError(t, err)
	assert.Equal(t, "KeyError: responseCode", result.Error)
}

func TestExecuteTimeout(t *testing.T) {
	interpreter := fakeInterpreter(t, `sleep 5`)
	runner := newTestRunner(t, interpreter, 100)

	_, err := runner.Execute(context.Background(), testProgram(), testBundle())
	assertErrorCode(t, err, apperrors.ErrCodeExecutionTimeout)
}

func TestExecuteCanceledContextIsNotAContractViolation(t *testing.T) {
	interpreter := fakeInterpreter(t, `sleep 5`)
	runner := newTestRunner(t, interpreter, 5000)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := runner.Execute(ctx, testProgram(), testBundle())
	require.ErrorIs(t, err, context.Canceled)

	var stdErr *apperrors.StandardError
	assert.False(t, errors.As(err, &stdErr), "caller cancellation must not be blamed on the program")
}

func TestExecuteChartMustBeDecodableBase64(t *testing.T) {
	interpreter := fakeInterpreter(t,
		`printf '{"insights":[],"chart":"not-base64!","data":{}}'`)
	runner := newTestRunner(t, interpreter, 5000)

	_, err := runner.Execute(context.Background(), testProgram(), testBundle())
	assertErrorCode(t, err, apperrors.ErrCodeExecutionContractViolation)
}

func TestExecuteAcceptsDecodableChart(t *testing.T) {
	interpreter := fakeInterpreter(t,
		`printf '{"insights":[],"chart":"cG5n","data":{}}'`)
	runner := newTestRunner(t, interpreter, 5000)

	result, err := runner.Execute(context.Background(), testProgram(), testBundle())
	require.NoError(t, err)
	assert.Equal(t, "cG5n", result.Chart)
}

func TestExecuteRepeatRunsReturnIdenticalData(t *testing.T) {
	// The data section must depend on nothing but the program and the
	// bundle, so two runs over the same pair match byte for byte.
	interpreter := fakeInterpreter(t,
		`input=$(cat)
printf '{"insights":["stable"],"data":{"bundleBytes":%d}}' "${#input}"`)
	runner := newTestRunner(t, interpreter, 5000)

	first, err := runner.Execute(context.Background(), testProgram(), testBundle())
	require.NoError(t, err)
	second, err := runner.Execute(context.Background(), testProgram(), testBundle())
	require.NoError(t, err)

	firstData, err := json.Marshal(first.Data)
	require.NoError(t, err)
	secondData, err := json.Marshal(second.Data)
	require.NoError(t, err)
	assert.Equal(t, string(firstData), string(secondData))
}

func TestExecuteContractViolationOnMalformedStdout(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `printf 'Traceback (most recent call last)'`},
		{"missing required keys", `printf '{"error":""}'`},
		{"unexpected extra key", `printf '{"insights":[],"data":{},"shell":"/bin/sh"}'`},
		{"wrong insight types", `printf '{"insights":[1,2],"data":{}}'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newTestRunner(t, fakeInterpreter(t, tt.body), 5000)
			_, err := runner.Execute(context.Background(), testProgram(), testBundle())
			assertErrorCode(t, err, apperrors.ErrCodeExecutionContractViolation)
		})
	}
}

func TestExecuteContractViolationOnAbnormalExit(t *testing.T) {
	interpreter := fakeInterpreter(t, `echo "SyntaxError: invalid syntax" >&2; exit 1`)
	runner := newTestRunner(t, interpreter, 5000)

	_, err := runner.Execute(context.Background(), testProgram(), testBundle())
	assertErrorCode(t, err, apperrors.ErrCodeExecutionContractViolation)

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Contains(t, stdErr.Details, "SyntaxError")
}

func TestExecuteStdoutCap(t *testing.T) {
	interpreter := fakeInterpreter(t,
		`printf '{"insights":["%s"],"data":{}}' "$(head -c 4096 /dev/zero | tr '\0' 'x')"`)
	runner := NewRunner(config.SandboxConfig{
		Interpreter:    interpreter,
		Timeout:        5000,
		WorkDir:        t.TempDir(),
		MaxOutputBytes: 256,
	}, logger.NewNoOpLogger())

	_, err := runner.Execute(context.Background(), testProgram(), testBundle())
	assertErrorCode(t, err, apperrors.ErrCodeExecutionContractViolation)
}

func TestExecuteConcurrentRunsAreIsolated(t *testing.T) {
	// Each run reports its working directory so we can prove runs never
	// share scratch space.
	interpreter := fakeInterpreter(t,
		`printf '{"insights":[],"data":{"dir":"%s"}}' "$PWD"`)
	runner := newTestRunner(t, interpreter, 5000)

	const n = 4
	dirs := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := runner.Execute(context.Background(), testProgram(), testBundle())
			errs[i] = err
			if err == nil {
				dirs[i], _ = result.Data["dir"].(string)
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	seen := make(map[string]bool, n)
	for _, dir := range dirs {
		require.NotEmpty(t, dir)
		assert.False(t, seen[dir], "run directories must be unique: %s", dir)
		seen[dir] = true
	}
}

func TestExecuteCleansUpRunDirectory(t *testing.T) {
	workDir := t.TempDir()
	interpreter := fakeInterpreter(t, `printf '{"insights":[],"data":{}}'`)
	runner := NewRunner(config.SandboxConfig{
		Interpreter:    interpreter,
		Timeout:        5000,
		WorkDir:        workDir,
		MaxOutputBytes: 1 << 20,
	}, logger.NewNoOpLogger())

	_, err := runner.Execute(context.Background(), testProgram(), testBundle())
	require.NoError(t, err)

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "run directory must be removed after execution")
}

func TestBuildScriptEmbedsProgram(t *testing.T) {
	script := buildScript("def analyze(bundle):\n    return {\"data\": {}}\n")
	assert.Contains(t, script, "def analyze(bundle):")
	assert.Contains(t, script, `if __name__ == "__main__":`)
}

func TestValidateResult(t *testing.T) {
	ok, _ := validateResult([]byte(`{"error":"","insights":["a"],"chart":"","data":{}}`))
	assert.True(t, ok)

	ok, desc := validateResult([]byte(`{"insights":"not-a-list","data":{}}`))
	assert.False(t, ok)
	assert.NotEmpty(t, desc)
}
