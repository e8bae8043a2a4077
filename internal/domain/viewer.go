package domain

// Viewer is the user on whose behalf a read or mutation runs.
type Viewer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Locale string `json:"locale,omitempty"`
}

func (v Viewer) IsGM() bool {
	return v.Role == RoleGM
}
