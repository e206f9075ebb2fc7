package usercontext

// KeyUserContext is the fiber Locals key the auth middleware stores the
// request's UserContext under.
const KeyUserContext = "USER_CONTEXT"
