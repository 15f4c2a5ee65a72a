package response

const (
	MsgLoggedIn        = "Successfully logged in"
	MsgUserCreated     = "User successfully created"
	MsgTokenRefreshed  = "Access token successfully refreshed"
	MsgCookieCleared   = "Cookie cleared"
	MsgUnauthorized    = "Unauthorized"
	MsgInvalidLogin    = "Invalid email or password"
	MsgInvalidRequest  = "Invalid request format"
	MsgInvalidUserData = "Invalid user data received"
	MsgInvalidAvatar   = "Avatar must be an image"
	MsgAvatarTooLarge  = "Avatar is too large"
	MsgUserExists      = "User already exist with received data"
	MsgInternal        = "Internal server error"
)

var (
	ErrUnauthorized    = NewMessage(MsgUnauthorized)
	ErrInvalidLogin    = NewMessage(MsgInvalidLogin)
	ErrInvalidRequest  = NewMessage(MsgInvalidRequest)
	ErrInvalidUserData = NewMessage(MsgInvalidUserData)
	ErrInvalidAvatar   = NewMessage(MsgInvalidAvatar)
	ErrAvatarTooLarge  = NewMessage(MsgAvatarTooLarge)
	ErrUserExists      = NewMessage(MsgUserExists)
	ErrInternal        = NewMessage(MsgInternal)
)
