package devapi

import (
	"fmt"
	"net/http"
)

// ANSI colours for the DEV request log.
const (
	red     = "\033[31m"
	green   = "\033[32m"
	yellow  = "\033[33m"
	blue    = "\033[34m"
	magenta = "\033[35m"
	cyan    = "\033[36m"
	gray    = "\033[90m"
	reset   = "\033[0m"
)

var methodColours = map[string]string{
	http.MethodGet:    green,
	http.MethodPost:   blue,
	http.MethodPut:    cyan,
	http.MethodPatch:  magenta,
	http.MethodDelete: yellow,
}

func colourMethod(method string) string {
	padded := fmt.Sprintf(" %-7s", method)
	if c, ok := methodColours[method]; ok {
		return c + padded + reset
	}
	return gray + padded + reset
}

// colourStatus makes 401s stand out, since they drive the client's refresh path.
func colourStatus(status int) string {
	c := green
	switch {
	case status == http.StatusUnauthorized:
		c = magenta
	case status >= 500:
		c = red
	case status >= 400:
		c = yellow
	}
	return fmt.Sprintf("%s%d%s", c, status, reset)
}
