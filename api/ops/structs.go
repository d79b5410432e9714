package ops

type claimRequest struct {
	SubjectID int64 `json:"subject_id" binding:"required"`
	AdminID   int64 `json:"admin_id" binding:"required"`
}

type replyRequest struct {
	AdminID   int64  `json:"admin_id" binding:"required"`
	SubjectID int64  `json:"subject_id" binding:"required"`
	Text      string `json:"text" binding:"required"`
}

type additionRequest struct {
	SubjectID int64  `json:"subject_id" binding:"required"`
	Text      string `json:"text" binding:"required"`
}

type closeRequest struct {
	AdminID   int64 `json:"admin_id" binding:"required"`
	SubjectID int64 `json:"subject_id" binding:"required"`
}

type transferRequest struct {
	FromID int64 `json:"from_id" binding:"required"`
	ToID   int64 `json:"to_id" binding:"required"`
	// No required tag: a literal 0 must reach the ledger and come back
	// as its own validation error, not as a binding failure.
	Amount int64 `json:"amount"`
}

type adjustRequest struct {
	UserID  int64 `json:"user_id" binding:"required"`
	Delta   int64 `json:"delta"`
	AdminID int64 `json:"admin_id" binding:"required"`
}

type massAdjustRequest struct {
	Delta   int64 `json:"delta"`
	AdminID int64 `json:"admin_id" binding:"required"`
}

type tempBanRequest struct {
	Target          string `json:"target" binding:"required"`
	DurationMinutes int64  `json:"duration_minutes" binding:"required"`
	Reason          string `json:"reason" binding:"required"`
	AdminID         int64  `json:"admin_id" binding:"required"`
}

type permBanRequest struct {
	Target  string `json:"target" binding:"required"`
	AdminID int64  `json:"admin_id" binding:"required"`
}

type registerRequest struct {
	UserID   int64  `json:"user_id" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
	Username string `json:"username"`
}

type defineAchievementRequest struct {
	ID      string `json:"id" binding:"required"`
	Name    string `json:"name" binding:"required"`
	AdminID int64  `json:"admin_id" binding:"required"`
}

type grantAchievementRequest struct {
	Target        string `json:"target" binding:"required"`
	AchievementID string `json:"achievement_id" binding:"required"`
	AdminID       int64  `json:"admin_id" binding:"required"`
}

type revokeAchievementRequest struct {
	UserID        int64  `json:"user_id" binding:"required"`
	AchievementID string `json:"achievement_id" binding:"required"`
	AdminID       int64  `json:"admin_id" binding:"required"`
}
