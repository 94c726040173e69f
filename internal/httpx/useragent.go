package httpx

import (
	"math/rand"
	"net/http"
)

// userAgents is a small pool of current browser strings for sources that
// reject obvious bot agents.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:130.0) Gecko/20100101 Firefox/130.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
}

// BrowserHeaders builds the default header set for a data source. With
// random=false the first pool entry is used, keeping requests reproducible.
func BrowserHeaders(referer string, random bool) http.Header {
	agent := userAgents[0]
	if random {
		agent = userAgents[rand.Intn(len(userAgents))]
	}
	h := http.Header{}
	h.Set("User-Agent", agent)
	h.Set("Accept", "application/json")
	h.Set("Accept-Language", "en-US,en;q=0.9,vi;q=0.8")
	if referer != "" {
		h.Set("Referer", referer)
		h.Set("Origin", referer)
	}
	return h
}
