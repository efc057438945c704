// Command reminder-cron drives the reminder pipeline of a booking service:
// it queues due reminders and then dispatches them. Run it from cron every
// few minutes; the scheduling window tolerates a late or early tick.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/md-rashed-zaman/bookingsaas/libs/auth"
)

func main() {
	var (
		baseURL = flag.String("base-url", getenv("BASE_URL", "http://localhost:8000"), "booking service base url")
		secret  = flag.String("jwt-secret", getenv("ADMIN_JWT_SECRET", ""), "admin JWT secret; requests are unauthenticated when empty")
		timeout = flag.Duration("timeout", 30*time.Second, "overall timeout")
		skipQ   = flag.Bool("send-only", false, "skip queueing and only dispatch")
	)
	flag.Parse()

	var token string
	if *secret != "" {
		var err error
		token, err = auth.SignHS256("reminder-cron", "", "admin", *secret, 5*time.Minute)
		if err != nil {
			fatal(err.Error())
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	base := strings.TrimRight(*baseURL, "/")
	if !*skipQ {
		post(ctx, base+"/api/cron/reminders", token)
	}
	post(ctx, base+"/api/reminders/send", token)
}

func post(ctx context.Context, url, token string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		fatal(err.Error())
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	fmt.Printf("%s status=%d body=%s\n", url, resp.StatusCode, strings.TrimSpace(string(body)))
	if resp.StatusCode >= 300 {
		os.Exit(1)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
