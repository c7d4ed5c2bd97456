package auth

// Claims representa la información extraída del access token de Supabase.
type Claims struct {
	UserID    string
	Email     string
	SessionID string
}
