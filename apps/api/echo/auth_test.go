package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	echoapi "github.com/jkamau/darasa/apps/api/echo"
	"github.com/jkamau/darasa/core"
	"github.com/jkamau/darasa/core/user"
)

func Test_authApi_login(t *testing.T) {
	teacher := createUser(t, "Login Teacher", "loginteacher", user.RoleTeacher, true)
	naughty := createUser(t, "Login Dog", "logindog", user.RoleStudent, false)

	login := func(uname, pwd string) []byte {
		return marshalObj(t, echoapi.LoginRequest{Username: uname, Password: pwd})
	}

	tests := []httpTest{
		{name: "Credentials required", body: marshalObj(t, echoapi.LoginRequest{}), wantCode: http.StatusBadRequest},
		{
			name: "Unknown user", body: login("nobody", "s3cr3tPass"), wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Wrong password", body: login(teacher.Username, "wr0ngPass"), wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Deactivated account", body: login(naughty.Username, "s3cr3tPass"), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "Logged in with username", body: login(teacher.Username, "s3cr3tPass"), wantCode: http.StatusOK},
		{name: "Logged in with email", body: login(teacher.Email, "s3cr3tPass"), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, http.MethodPost, "/api/auth/login", "", tt.body)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var resp echoapi.LoginResponse
				unmarshalObj(t, rec.Body.Bytes(), &resp)
				if resp.Token == "" {
					t.Error("failed! empty token")
				}
				if resp.Role != user.RoleTeacher {
					t.Errorf("role = %v; want %v", resp.Role, user.RoleTeacher)
				}
				if resp.User.ID != teacher.ID {
					t.Errorf("user.ID = %v; want %v", resp.User.ID, teacher.ID)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_refreshToken(t *testing.T) {
	student := createUser(t, "Refresh Hero", "refreshhero", user.RoleStudent, true)
	naughty := createUser(t, "Refresh Dog", "refreshdog", user.RoleStudent, false)

	now := time.Now()
	unrefreshableClaims := &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   student.ID,
			Audience:  "Darasa",
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * core.Conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		Name:         student.Name,
		Username:     student.Username,
		Role:         student.Role,
	}
	unrefreshableToken, err := echoapi.GenerateToken(unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "Token refreshed", token: getToken(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, http.MethodPost, "/api/auth/token-refresh", tt.token)

			// cannot guess the new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var resp echoapi.TokenResponse
				unmarshalObj(t, rec.Body.Bytes(), &resp)
				if resp.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}
