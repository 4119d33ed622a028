package transfer

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const confirmationPad = 20

// Confirmation is the proof-of-delivery record attached to the ticket.
type Confirmation struct {
	FileName   string
	Host       string
	Directory  string
	AccessTime time.Time
	ModifyTime time.Time
	Size       int64
}

// NewConfirmation builds a record from remote attributes. Times are shown in loc.
func NewConfirmation(attrs FileAttributes, host, dir string, loc *time.Location) Confirmation {
	if loc == nil {
		loc = time.Local
	}
	return Confirmation{
		FileName:   attrs.Name,
		Host:       host,
		Directory:  dir,
		AccessTime: attrs.AccessTime.In(loc),
		ModifyTime: attrs.ModifyTime.In(loc),
		Size:       attrs.Size,
	}
}

var sizePrinter = message.NewPrinter(language.English)

// Text renders the record in the fixed-width layout support staff expect.
func (c Confirmation) Text() string {
	blank := strings.Repeat(" ", confirmationPad)

	var sb strings.Builder
	fmt.Fprintf(&sb, "File Name: %s", c.FileName)
	fmt.Fprintf(&sb, "\n\tLocation on ftp Server ->    %-*s:%*s", confirmationPad, c.Host, confirmationPad, c.Directory)
	fmt.Fprintf(&sb, "\n\tLast Access Time             %s:%*s", blank, confirmationPad, c.AccessTime.Format(time.ANSIC))
	fmt.Fprintf(&sb, "\n\tCreated or Last Modified Time%s:%*s", blank, confirmationPad, c.ModifyTime.Format(time.ANSIC))
	sb.WriteString(sizePrinter.Sprintf("\n\tFile Size                    %s:%d bytes", blank, c.Size))
	return sb.String()
}

// Bytes returns Text as an attachment payload.
func (c Confirmation) Bytes() []byte {
	return []byte(c.Text())
}
