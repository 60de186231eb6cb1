package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by outbound integrations (payment provider).
var HTTPClient = &http.Client{
	Timeout: 15 * time.Second,
}
