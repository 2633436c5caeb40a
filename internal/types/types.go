package types

type Screen string

const (
	ScreenLanding          Screen = "landing"
	ScreenMultiplayerSetup Screen = "multiplayer-setup"
	ScreenGame             Screen = "game"
	ScreenSessionEnd       Screen = "session-end"
	ScreenManageQuestions  Screen = "manage-questions"
)

type Mode string

const (
	ModeSolo        Mode = "solo"
	ModeMultiplayer Mode = "multiplayer"
)

type Category string

const (
	CategoryCouples Category = "couples"
	CategoryFriends Category = "friends"
)

// CategoryIDs maps a category to the numeric id used by the question API.
var CategoryIDs = map[Category]int{
	CategoryFriends: 1,
	CategoryCouples: 2,
}

// ID returns the API id of the category, or 0 if the category is unknown.
func (c Category) ID() int {
	return CategoryIDs[c]
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := CategoryIDs[c]
	return ok
}

type Question struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	CategoryID   *int   `json:"category_id,omitempty"`
	CategoryName string `json:"category_name,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

type SessionState struct {
	Screen      Screen   `json:"screen"`
	Mode        Mode     `json:"mode"`
	Category    Category `json:"category"`
	CardIndex   int      `json:"cardIndex"`
	Flipped     bool     `json:"flipped"`
	CardsPlayed int      `json:"cardsPlayed"`
	RoomID      string   `json:"roomId"`
	PlayerTurn  bool     `json:"playerTurn"`
	Epoch       uint64   `json:"epoch"`
}

type PaginationState struct {
	HasMore    bool `json:"hasMore"`
	Loading    bool `json:"loading"`
	LastSeenID *int `json:"lastSeenId,omitempty"`
}

type FormDraft struct {
	Title      string            `json:"title"`
	CategoryID int               `json:"categoryId"`
	Errors     map[string]string `json:"errors,omitempty"`
}

type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastInfo    ToastKind = "info"
)

type Toast struct {
	Kind        ToastKind `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
}
