// Command booking-sim drives the happy-path booking flow against a running
// gateway: declare availability as a teacher, fetch slots, book as a student.
// For local smoke testing only; it mints its own dev JWTs.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tutorhub/tutorhub/libs/auth"
)

func main() {
	var (
		baseURL   = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "gateway base url")
		jwtSecret = flag.String("secret", getenv("JWT_SECRET", "dev-secret"), "gateway JWT secret")
		teacherID = flag.String("teacher-id", getenv("TEACHER_ID", ""), "teacher user id (random when empty)")
		studentID = flag.String("student-id", getenv("STUDENT_ID", ""), "student user id (random when empty)")
		date      = flag.String("date", "", "booking date YYYY-MM-DD (tomorrow when empty)")
	)
	flag.Parse()

	if *teacherID == "" {
		*teacherID = uuid.NewString()
	}
	if *studentID == "" {
		*studentID = uuid.NewString()
	}
	if *date == "" {
		*date = time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	}

	teacherToken, err := mintToken(*teacherID, "teacher", *jwtSecret)
	if err != nil {
		fatal(err.Error())
	}
	studentToken, err := mintToken(*studentID, "student", *jwtSecret)
	if err != nil {
		fatal(err.Error())
	}

	base := strings.TrimRight(*baseURL, "/")

	// Teacher declares a colored range set and assigns it to the date.
	must(do(http.MethodPut, base+"/api/v1/profile", teacherToken, map[string]any{
		"name":     "Sim Teacher",
		"timezone": "UTC",
		"subjects": []string{"english"},
	}))
	must(do(http.MethodPut, base+"/api/v1/availability/sets", teacherToken, map[string]any{
		"color_key":   "blue",
		"time_ranges": []string{"09:00-12:00", "14:00-17:00"},
	}))
	must(do(http.MethodPut, base+"/api/v1/availability/dates", teacherToken, map[string]any{
		"date":      *date,
		"color_key": "blue",
	}))

	// Student browses slots.
	slotsBody := must(do(http.MethodGet, base+"/api/v1/slots?teacher_id="+*teacherID+"&date="+*date, studentToken, nil))
	var slots []string
	if err := json.Unmarshal(slotsBody, &slots); err != nil {
		fatal("invalid slots response: " + err.Error())
	}
	if len(slots) < 2 {
		fatal(fmt.Sprintf("expected at least 2 slots, got %v", slots))
	}
	fmt.Printf("slots: %v\n", slots)

	// Student books the first two contiguous points.
	bookBody := must(do(http.MethodPost, base+"/api/v1/bookings", studentToken, map[string]any{
		"teacher_id": *teacherID,
		"date":       *date,
		"times":      slots[:2],
	}))
	var created struct {
		BookingID string `json:"booking_id"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(bookBody, &created); err != nil {
		fatal("invalid booking response: " + err.Error())
	}
	fmt.Printf("booked: %s (%s)\n", created.BookingID, created.Status)

	// Teacher confirms.
	must(do(http.MethodPost, base+"/api/v1/bookings/confirm", teacherToken, map[string]any{
		"booking_id": created.BookingID,
	}))
	fmt.Println("confirmed")
}

func mintToken(userID, role, secret string) (string, error) {
	now := time.Now()
	return auth.SignHS256(auth.Claims{
		Sub:  userID,
		Role: role,
		Iat:  now.Unix(),
		Exp:  now.Add(time.Hour).Unix(),
	}, secret)
}

func do(method, url, token string, body map[string]any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s: %d: %s", method, url, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

func must(data []byte, err error) []byte {
	if err != nil {
		fatal(err.Error())
	}
	return data
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "error: "+msg)
	os.Exit(1)
}
