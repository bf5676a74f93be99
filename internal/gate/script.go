package gate

import (
	"fmt"
	"strings"
)

// No-op payloads returned on the degraded paths. Always syntactically valid
// JavaScript, never empty, never carrying internal error detail.
const (
	ScriptMissingID = `console.error("Clowiza: ID missing");`
	ScriptNotFound  = `console.error("Clowiza: Link not found");`
	ScriptInternal  = `console.warn("Clowiza: guard unavailable");`

	scriptAllow = `/* Clowiza: Protection Active - Access Granted */`
)

// blockScript wipes the page and navigates away. location.replace keeps the
// blocked content out of the back-button history; the catch branch is the
// fallback when DOM clearing throws (e.g. the script ran before body exists).
const blockScript = `(function() {
  try {
    document.body.innerHTML = '';
    document.head.innerHTML = '';
    window.stop();
    window.location.replace("%s");
  } catch(e) {
    window.location.href = "%s";
  }
})();`

// Render builds the executable payload that enacts a decision in the
// visitor's browser. Allow is inert: the visitor's own page keeps loading
// and the gate stays invisible.
func Render(d Decision) string {
	if d.Outcome == OutcomeBlock {
		dest := escapeJSString(d.Destination)
		return fmt.Sprintf(blockScript, dest, dest)
	}
	return scriptAllow
}

// escapeJSString makes a value safe to interpolate inside a double-quoted
// JavaScript string literal. Destinations are operator-supplied, not
// visitor-supplied, but they still must not be able to break the script.
func escapeJSString(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"<", `\x3c`,
	)
	return r.Replace(s)
}
