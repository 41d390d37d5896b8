package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/enfyra/server-sub005/internal/syncerr"
)

// FormatError renders an error for terminal display in Cargo style. Sync
// errors get their code, context, and cause chain; anything else falls back
// to a plain error line.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var se *syncerr.Error
	if errors.As(err, &se) {
		return formatSyncError(se)
	}

	return Error("error") + ": " + err.Error() + "\n"
}

func formatSyncError(err *syncerr.Error) string {
	var b strings.Builder

	b.WriteString(Error("error"))
	b.WriteString("[")
	b.WriteString(Code(string(err.GetCode())))
	b.WriteString("]: ")
	b.WriteString(err.GetMessage())
	b.WriteString("\n")

	ctx := err.GetContext()
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("  ")
		b.WriteString(Dim(k + ":"))
		b.WriteString(fmt.Sprintf(" %v\n", ctx[k]))
	}

	if cause := err.Unwrap(); cause != nil {
		b.WriteString("  ")
		b.WriteString(Dim("cause:"))
		b.WriteString(" ")
		b.WriteString(cause.Error())
		b.WriteString("\n")
	}

	if !syncerr.IsFatal(err) {
		b.WriteString(Note("note"))
		b.WriteString(": this error is transient and was retried before giving up\n")
	}
	return b.String()
}
