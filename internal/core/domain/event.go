package domain

// Post change actions carried by PostEvent.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// PostEvent is the payload broadcast to realtime listeners after a post was
// written. Post holds a *Post for create/update and the post id for delete.
type PostEvent struct {
	Action string `json:"action"`
	Post   any    `json:"post"`
}
