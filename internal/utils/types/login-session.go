package types

// LoginSession is stored per user and device fingerprint. A connection is
// only admitted while its session exists.
type LoginSession struct {
	UserId      string `json:"userId"`
	Username    string `json:"username"`
	Fingerprint string `json:"fingerprint"`
	IssueAt     int64  `json:"issue_at"`
	ExpireAt    int64  `json:"expire_at"`
}
