package response

// Message is the body of every auth endpoint that carries no token.
type Message struct {
	Message string `json:"message"`
}

type Token struct {
	AccessToken string `json:"accessToken"`
	Message     string `json:"message"`
}

func NewMessage(msg string) Message {
	return Message{Message: msg}
}
