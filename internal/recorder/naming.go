package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const defaultTemplate = "{session}_{date}_{time}"

// unsafe in file names on at least one supported platform
var fileNameReplacer = strings.NewReplacer(
	"/", "-", `\`, "-", ":", "-", "*", "-", "?", "-",
	`"`, "-", "<", "-", ">", "-", "|", "-",
)

// FileName expands template for a save at now. Recognized placeholders are
// {session}, {name}, {date} (2006-01-02), {time} (15-04-05) and
// {timestamp} (Unix milliseconds). The result has no extension.
func FileName(template, session, name string, now time.Time) string {
	if strings.TrimSpace(template) == "" {
		template = defaultTemplate
	}
	out := strings.NewReplacer(
		"{session}", session,
		"{name}", name,
		"{date}", now.Format("2006-01-02"),
		"{time}", now.Format("15-04-05"),
		"{timestamp}", strconv.FormatInt(now.UnixMilli(), 10),
	).Replace(template)

	out = strings.Trim(fileNameReplacer.Replace(out), " ._-")
	if out == "" {
		out = strconv.FormatInt(now.UnixMilli(), 10)
	}
	return out
}

// uniquePath returns dir/base+ext, adding _1, _2, ... while the name is
// taken.
func uniquePath(dir, base, ext string) string {
	p := filepath.Join(dir, base+ext)
	for i := 1; fileExists(p); i++ {
		p = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, i, ext))
	}
	return p
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
