// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"bytes"
	"text/template"
)

// driverTemplate renders the per-invocation Python harness. It is
// plain text/template (stdlib) — no third-party templating library in
// the corpus targets code generation rather than HTML, so this is one
// of the few places this module reaches for the standard library by
// design rather than necessity (see DESIGN.md).
//
// The harness:
//  1. imports the learner's module from solution.py,
//  2. runs each test case, capturing the learner's stdout (both the
//     Python-level sys.stdout and raw fd 1 writes) into a buffer kept
//     disjoint from the marker stream,
//  3. measures monotonic wall time per test,
//  4. deep-compares the result against the expected value,
//  5. emits one JSON result object wrapped between two copies of the
//     marker to the real fd 1, which the parent alone generated.
var driverTemplate = template.Must(template.New("driver").Parse(`
import sys, os, json, time, io, contextlib, tempfile, traceback
import importlib.util

MARKER = {{.Marker | printf "%q"}}
ENTRY_POINT = {{.EntryPoint | printf "%q"}}

def main():
    with open({{.TestsPath | printf "%q"}}) as f:
        tests = json.load(f)

    results = []
    fn = None
    load_error = None
    try:
        spec = importlib.util.spec_from_file_location("solution", {{.SolutionPath | printf "%q"}})
        mod = importlib.util.module_from_spec(spec)
        spec.loader.exec_module(mod)
        fn = getattr(mod, ENTRY_POINT)
    except Exception:
        load_error = traceback.format_exc()

    saved_fd1 = os.dup(1)

    for t in tests:
        entry = {
            "test_num": t["num"],
            "input": t["input"],
            "expected": t["expected"],
            "actual": None,
            "passed": False,
            "runtime_ms": 0,
            "stdout": "",
        }

        if fn is None:
            entry["error"] = (load_error.strip().splitlines() or ["RuntimeError"])[-1]
            results.append(entry)
            continue

        tmp = tempfile.TemporaryFile()
        os.dup2(tmp.fileno(), 1)
        buf = io.StringIO()
        start = time.monotonic()
        try:
            with contextlib.redirect_stdout(buf):
                actual = fn(*t["input"])
            entry["actual"] = actual
            entry["passed"] = (actual == t["expected"])
        except Exception:
            tb = traceback.format_exc().strip().splitlines()
            entry["error"] = tb[-1] if tb else "RuntimeError"
        finally:
            entry["runtime_ms"] = int((time.monotonic() - start) * 1000)
            os.dup2(saved_fd1, 1)
            tmp.seek(0)
            raw = tmp.read().decode("utf-8", "replace")
            tmp.close()
            entry["stdout"] = buf.getvalue() + raw

        results.append(entry)

    payload = json.dumps({"results": results}, default=str)
    sys.stdout.write(MARKER + payload + MARKER)
    sys.stdout.flush()

if __name__ == "__main__":
    main()
`))

type driverParams struct {
	Marker       string
	EntryPoint   string
	TestsPath    string
	SolutionPath string
}

func renderDriver(p driverParams) (string, error) {
	var buf bytes.Buffer
	if err := driverTemplate.Execute(&buf, p); err != nil {
		return "", err
	}
	return buf.String(), nil
}
