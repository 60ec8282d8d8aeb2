package provider

// Valid reports whether an analysis result satisfies the minimal contract:
// a truthy success flag and a non-empty payload. Some vendor SDKs return a
// default object instead of raising, so "no error" alone is not trusted.
func Valid(result *AnalysisResult) bool {
	return result != nil && result.Success && result.Result != ""
}
