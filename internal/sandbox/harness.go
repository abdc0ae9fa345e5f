// internal/sandbox/harness.go
package sandbox

// harnessFooter is appended after the synthesized program source. The
// combined script reads the dataset bundle from stdin, runs the
// program's analyze entry point exactly once, and emits the result
// contract as a single JSON object on stdout. A program exception is
// not a harness failure: it becomes a valid result with the error field
// set, so the caller can distinguish a broken program from a broken
// sandbox.
const harnessFooter = `

if __name__ == "__main__":
    import json as _json
    import sys as _sys

    def _shape(raw):
        out = {"error": "", "insights": [], "chart": "", "data": {}}
        if not isinstance(raw, dict):
            out["error"] = "analyze() returned %s, expected dict" % type(raw).__name__
            return out
        err = raw.get("error")
        if err:
            out["error"] = str(err)
        insights = raw.get("insights")
        if isinstance(insights, (list, tuple)):
            out["insights"] = [str(i) for i in insights]
        elif insights is not None:
            out["insights"] = [str(insights)]
        chart = raw.get("chart")
        if isinstance(chart, str):
            out["chart"] = chart
        elif isinstance(chart, (bytes, bytearray)):
            import base64 as _base64
            out["chart"] = _base64.b64encode(bytes(chart)).decode("ascii")
        data = raw.get("data")
        if isinstance(data, dict):
            out["data"] = data
        return out

    _result = {"error": "", "insights": [], "chart": "", "data": {}}
    try:
        _bundle = _json.loads(_sys.stdin.read() or "{}")
        _result = _shape(analyze(_bundle))
    except Exception as _exc:
        _result["error"] = "%s: %s" % (type(_exc).__name__, _exc)
    _sys.stdout.write(_json.dumps(_result, default=str))
`

// buildScript joins the synthesized program with the harness footer.
func buildScript(programSource string) string {
	return programSource + harnessFooter
}
