package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url, token string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func main() {
	color.Cyan("🚀 Starting Session & Notification API Smoke Test\n")

	// 1. Register a throwaway user
	email := fmt.Sprintf("smoke_%d@example.com", time.Now().Unix())
	color.Yellow("\n[AUTH] 1. Register (%s)", email)
	registerReq := map[string]interface{}{
		"full_name": "Smoke Tester",
		"email":     email,
		"password":  "supersecret123",
	}
	resp, body, err := sendRequest("POST", "/auth/register", "", registerReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)

	// 2. Login
	color.Yellow("\n[AUTH] 2. Login")
	loginReq := map[string]interface{}{
		"email":       email,
		"password":    "supersecret123",
		"remember_me": true,
	}
	resp, body, err = sendRequest("POST", "/auth/login", "", loginReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var loginResp map[string]interface{}
	json.Unmarshal(body, &loginResp)

	var token string
	if data, ok := loginResp["data"].(map[string]interface{}); ok {
		if t, ok := data["access_token"].(string); ok {
			token = t
		}
	}
	if token == "" {
		color.Red("No access_token in login response")
		prettyPrint(loginResp)
		os.Exit(1)
	}

	var refreshToken string
	if data, ok := loginResp["data"].(map[string]interface{}); ok {
		if rt, ok := data["refresh_token"].(string); ok {
			refreshToken = rt
		}
	}

	// 2b. Rotate the refresh token; later calls ride on the new access token
	if refreshToken != "" {
		color.Yellow("\n[AUTH] 2b. Refresh Token Exchange")
		resp, body, err = sendRequest("POST", "/auth/refresh", "", map[string]interface{}{"refresh_token": refreshToken})
		if err != nil {
			color.Red("Failed: %v", err)
		} else {
			color.Green("Status: %s", resp.Status)
			var refreshResp map[string]interface{}
			json.Unmarshal(body, &refreshResp)
			if data, ok := refreshResp["data"].(map[string]interface{}); ok {
				if t, ok := data["access_token"].(string); ok && t != "" {
					token = t
				}
			}
		}
	}

	// 3. Get Profile
	color.Yellow("\n[USER] 3. Get Profile")
	resp, body, err = sendRequest("GET", "/user/profile", token, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var profileResp map[string]interface{}
	json.Unmarshal(body, &profileResp)
	prettyPrint(profileResp)

	// 4. Create a generation session
	color.Yellow("\n[SESSION] 4. Create Generation Session")
	sessionReq := map[string]interface{}{
		"business_prompt": "An online bookstore where readers search the catalog, preview sample chapters, and order physical or digital copies.",
	}
	resp, body, err = sendRequest("POST", "/session/v1", token, sessionReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var createResp map[string]interface{}
	json.Unmarshal(body, &createResp)
	prettyPrint(createResp)

	var sessionID string
	if data, ok := createResp["data"].(map[string]interface{}); ok {
		if id, ok := data["id"].(string); ok {
			sessionID = id
		}
	}

	// 5. List sessions
	color.Yellow("\n[SESSION] 5. List Sessions")
	resp, body, err = sendRequest("GET", "/session/v1", token, nil)
	if err != nil {
		color.Red("Failed: %v", err)
	} else {
		color.Green("Status: %s", resp.Status)
		var listResp map[string]interface{}
		json.Unmarshal(body, &listResp)
		if data, ok := listResp["data"].([]interface{}); ok {
			fmt.Printf("Sessions: %d\n", len(data))
		} else {
			prettyPrint(listResp)
		}
	}

	// 6. Trigger a test notification through the debug endpoint
	color.Yellow("\n[NOTIF] 6. Trigger TEST_EVENT")
	triggerReq := map[string]interface{}{
		"type":    "TEST_EVENT",
		"payload": map[string]interface{}{"message": "smoke test ping"},
	}
	resp, body, err = sendRequest("POST", "/debug/trigger-notification", token, triggerReq)
	if err != nil {
		color.Red("Failed: %v", err)
	} else {
		color.Green("Status: %s", resp.Status)
	}

	// Give the NATS consumer a moment to store the notification
	time.Sleep(2 * time.Second)

	// 7. Check inbox and unread count
	color.Yellow("\n[NOTIF] 7. Inbox & Unread Count")
	resp, body, err = sendRequest("GET", "/notifications/?limit=5", token, nil)
	if err != nil {
		color.Red("Failed: %v", err)
	} else {
		color.Green("Status: %s", resp.Status)
		var inboxResp map[string]interface{}
		json.Unmarshal(body, &inboxResp)
		prettyPrint(inboxResp)
	}
	resp, body, err = sendRequest("GET", "/notifications/unread-count", token, nil)
	if err != nil {
		color.Red("Failed: %v", err)
	} else {
		color.Green("Status: %s", resp.Status)
		fmt.Println(string(body))
	}

	// 8. Cleanup: delete the session
	if sessionID != "" {
		color.Yellow("\n[SESSION] 8. Cleanup: Delete Session")
		resp, body, err = sendRequest("DELETE", "/session/v1/"+sessionID, token, nil)
		if err != nil {
			color.Red("Failed: %v", err)
		} else {
			color.Green("Status: %s", resp.Status)
		}
	} else {
		color.Red("\n[SKIP] Cleanup skipped (no session ID returned from create)")
	}

	color.Cyan("\n✅ Test Sequence Complete")
}
