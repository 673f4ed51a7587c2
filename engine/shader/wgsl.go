package shader

import (
	"regexp"
	"strings"
)

var entryPointRegex = map[Stage]*regexp.Regexp{
	StageVertex:   regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`),
	StageFragment: regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`),
	StageCompute:  regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`),
}

// parseEntryPoint returns the name of the first entry point of stage in WGSL code, or "".
func parseEntryPoint(code string, stage Stage) string {
	re, ok := entryPointRegex[stage]
	if !ok {
		return ""
	}
	if match := re.FindStringSubmatch(stripComments(code)); match != nil {
		return match[1]
	}
	return ""
}

func stripComments(code string) string {
	return stripLineComments(stripBlockComments(code))
}

func stripLineComments(code string) string {
	var sb strings.Builder
	sb.Grow(len(code))
	for line := range strings.SplitSeq(code, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// stripBlockComments removes /* */ comments, which nest in WGSL.
func stripBlockComments(code string) string {
	var sb strings.Builder
	sb.Grow(len(code))
	depth := 0
	for i := 0; i < len(code); i++ {
		if i+1 < len(code) {
			switch {
			case code[i] == '/' && code[i+1] == '*':
				depth++
				i++
				continue
			case code[i] == '*' && code[i+1] == '/' && depth > 0:
				depth--
				i++
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(code[i])
		}
	}
	return sb.String()
}
