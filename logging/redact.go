package logging

import (
	"path/filepath"
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces anything this package decides not to log
// verbatim.
const RedactedPlaceholder = "[REDACTED]"

// valuePatterns catches credential shapes that might end up embedded in a
// log field's string value rather than carried under a clearly-named key:
// a GitHub token used by release.Fetcher to pull a private release asset,
// a Hugging Face access token used to resolve a gated model URL, or a
// generic "key: value"/"key=value" secret assignment picked up from a
// config file or CLI arg.
var valuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(ghp_[a-zA-Z0-9]{36})`),
	regexp.MustCompile(`(?i)(github_pat_[a-zA-Z0-9_]{22,})`),
	regexp.MustCompile(`(?i)(hf_[a-zA-Z0-9]{30,})`),
	regexp.MustCompile(`(?i)(bearer\s+[a-zA-Z0-9._-]{20,})`),
	regexp.MustCompile(`(?i)((?:password|secret|token|api_?key)\s*[:=]\s*[^\s,;]{8,})`),
}

// envVarSuffixes names the shapes of environment variables this module's
// own release fetcher or model downloader might read a credential from.
// Unlike the teacher, this module talks to no third-party SaaS API, so
// there is no fixed list of named keys to match — any field whose name
// ends in one of these looks like a secret regardless of what service it
// authenticates against.
var envVarSuffixes = []string{"TOKEN", "SECRET", "PASSWORD", "API_KEY", "APIKEY"}

// RedactSensitiveData scans value for the patterns in valuePatterns and
// replaces each match with RedactedPlaceholder.
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}
	result := value
	for _, p := range valuePatterns {
		result = p.ReplaceAllString(result, RedactedPlaceholder)
	}
	return result
}

// IsSensitiveField reports whether fieldName looks like it names a
// credential rather than operational data.
func IsSensitiveField(fieldName string) bool {
	upper := strings.ToUpper(fieldName)
	for _, suffix := range envVarSuffixes {
		if strings.Contains(upper, suffix) {
			return true
		}
	}
	return false
}

// RedactPathOutsideDir returns value unchanged unless it is an absolute
// path that resolves outside allowedDir, in which case it returns
// RedactedPlaceholder. serverconfig.Config.Args and .OverrideTensors can
// carry arbitrary host paths (a LoRA adapter, a tensor-override file); only
// paths inside the model's own directory are considered safe to log.
func RedactPathOutsideDir(value, allowedDir string) string {
	if allowedDir == "" || !filepath.IsAbs(value) {
		return value
	}
	rel, err := filepath.Rel(allowedDir, value)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return RedactedPlaceholder
	}
	return value
}

// RedactPathsOutsideDir applies RedactPathOutsideDir to every entry.
func RedactPathsOutsideDir(values []string, allowedDir string) []string {
	if len(values) == 0 {
		return values
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = RedactPathOutsideDir(v, allowedDir)
	}
	return out
}
