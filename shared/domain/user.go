package domain

type UserProfile struct {
	Username  Username  `json:"username"`
	Email     Email     `json:"email"`
	Enabled   bool      `json:"enabled"`
	CreatedAt Timestamp `json:"createdAt"`
}

// User is a profile together with the identity uid it is keyed by
type User struct {
	Uid UserId `json:"uid"`
	UserProfile
}

const DefaultPerPage = 10

type UserSettings struct {
	ThreadsPerPage      int `json:"threadsPerPage"`
	PostsPerPage        int `json:"postsPerPage"`
	ProfilePostsPerPage int `json:"profilePostsPerPage"`
}

func DefaultUserSettings() UserSettings {
	return UserSettings{
		ThreadsPerPage:      DefaultPerPage,
		PostsPerPage:        DefaultPerPage,
		ProfilePostsPerPage: DefaultPerPage,
	}
}

// Session is the signed-in identity passed explicitly to every mutating call.
// The zero value is an anonymous session.
type Session struct {
	Uid      UserId
	Username Username
	Email    Email
	Token    string
}

func (s Session) Authenticated() bool {
	return s.Uid != ""
}

// AuthorName is the denormalized name written on threads and posts
func (s Session) AuthorName() Username {
	if s.Username == "" {
		return "Anonymous"
	}
	return s.Username
}
