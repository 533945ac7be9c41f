package dashboard

// Filter scopes.
const (
	ScopeGlobal = "global"
	ScopeChart  = "chart"
)

// RegenerateSignals represents the signals sent by the regenerate button.
type RegenerateSignals struct {
	Model string `json:"model"`
}
