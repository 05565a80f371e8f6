package authz

// Operation names a business capability independently of the transport that
// invokes it. The string value is used as a metrics and log label.
type Operation string

const (
	OpRegister      Operation = "Register"
	OpLogin         Operation = "Login"
	OpCreatePost    Operation = "CreatePost"
	OpGetPost       Operation = "GetPost"
	OpUpdatePost    Operation = "UpdatePost"
	OpDeletePost    Operation = "DeletePost"
	OpListPosts     Operation = "ListPosts"
	OpDeleteAccount Operation = "DeleteAccount"
	OpPing          Operation = "Ping"
)

// Operations lists every operation, in a stable order.
var Operations = []Operation{
	OpRegister, OpLogin, OpCreatePost, OpGetPost, OpUpdatePost,
	OpDeletePost, OpListPosts, OpDeleteAccount, OpPing,
}

var protected = map[Operation]bool{
	OpCreatePost:    true,
	OpUpdatePost:    true,
	OpDeletePost:    true,
	OpDeleteAccount: true,
}

// RequiresAuth reports whether op needs a valid bearer credential.
func (op Operation) RequiresAuth() bool {
	return protected[op]
}
