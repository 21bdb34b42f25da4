package domain

import "strings"

// CleanLogs strips terminal overwrites from captured output. Everything up to the last
// carriage return of a line is dropped (progress bars redraw with \r), empty lines are
// removed and every kept line ends with a newline.
func CleanLogs(logs string) string {
	if logs == "" {
		return logs
	}

	var b strings.Builder
	for _, line := range strings.Split(logs, "\n") {
		if i := strings.LastIndexByte(line, '\r'); i >= 0 {
			line = line[i+1:]
		}
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
