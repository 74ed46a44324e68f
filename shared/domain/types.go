package domain

type (
	Email    = string
	Password = string
	Username = string

	UserId     = string
	CategoryId = string
	ThreadId   = string
	PostId     = string

	ThreadTitle = string
	PostContent = string
)

// Document store collections
const (
	UsersCollection         = "users"
	UserSettingsCollection  = "userSettings"
	CategoriesCollection    = "categories"
	ThreadsCollection       = "threads"
	PostsCollection         = "posts"
	AccountsCollection      = "accounts"
	RevokedTokensCollection = "revokedTokens"
)
