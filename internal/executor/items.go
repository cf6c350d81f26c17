package executor

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerateItems returns count identifiers of the form
// "<prefix>-<salt>-NNN", where salt is a random 6-character run
// discriminator and NNN is a zero-padded 1-based sequence number.
// The salt keeps identifiers from colliding with earlier runs that
// used the same prefix.
func GenerateItems(prefix string, count int) []Item {
	salt := runSalt()
	items := make([]Item, 0, count)
	for i := 1; i <= count; i++ {
		items = append(items, Item(fmt.Sprintf("%s-%s-%03d", prefix, salt, i)))
	}
	return items
}

func runSalt() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}
