package domain

type Category struct {
	Id          CategoryId `json:"id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	SortOrder   int        `json:"sortOrder"`
}

type Thread struct {
	Id             ThreadId    `json:"id,omitempty"`
	Title          ThreadTitle `json:"title"`
	CategoryId     CategoryId  `json:"categoryId"`
	AuthorId       UserId      `json:"authorId"`
	AuthorUsername Username    `json:"authorUsername"`
	CreatedAt      Timestamp   `json:"createdAt"`
	LastPostAt     Timestamp   `json:"lastPostAt"`
	IsPinned       bool        `json:"isPinned"`
	IsLocked       bool        `json:"isLocked"`
}

type Post struct {
	Id             PostId      `json:"id,omitempty"`
	Content        PostContent `json:"content"`
	ThreadId       ThreadId    `json:"threadId"`
	AuthorId       UserId      `json:"authorId"`
	AuthorUsername Username    `json:"authorUsername"`
	CreatedAt      Timestamp   `json:"createdAt"`
	EditedAt       *Timestamp  `json:"editedAt,omitempty"`
}

// UserPost is a post enriched with its parent thread, as listed on a profile
type UserPost struct {
	Post
	ThreadTitle ThreadTitle `json:"threadTitle"`
	CategoryId  CategoryId  `json:"categoryId"`
}

const UnknownThreadTitle = "Unknown Thread"

type CategoryThreads struct {
	Category Category
	Threads  Page[Thread]
}
