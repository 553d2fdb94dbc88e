package bill

import (
	"fmt"
	"net/url"
)

const whatsAppShareURL = "https://wa.me/"

// ShareMessage is the text a citizen posts after voting on b.
func ShareMessage(b Bill) string {
	return fmt.Sprintf("🗳️ Acabei de votar no projeto \"%s\"!\n\nEntenda em linguagem simples: %s\n\nParticipe você também! 👇",
		b.Title, b.SimplifiedDescription)
}

// ShareURL returns a WhatsApp deep link pre-filled with ShareMessage.
func ShareURL(b Bill) string {
	q := url.Values{}
	q.Set("text", ShareMessage(b))
	return whatsAppShareURL + "?" + q.Encode()
}
