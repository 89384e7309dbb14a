package model

// User is a row of the users table.
type User struct {
	ID   int
	Name string
}

// Bio is a row of the user biography table used for user similarity.
type Bio struct {
	UserID   int
	Name     string
	ShortBio string
}

// Post is a row of the posts table used for article similarity.
type Post struct {
	Index   int
	Title   string
	Content string
}

// InteractionEvent records one action a user took on a post.
type InteractionEvent struct {
	UserID int
	PostID int
	Action Action
}

// UserScore is a user's smoothed popularity.
type UserScore struct {
	UserID int     `json:"user_id"`
	Score  float64 `json:"score"`
}
