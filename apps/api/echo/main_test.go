package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/pathway/apps/api/echo"
	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/user"
	"github.com/trezcool/pathway/testutil"
)

type httpErr struct {
	Error string `json:"error"`
}

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	ctxBg           = context.Background()
)

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	token    string
	wantCode int
	wantData interface{}
}

type testApp struct {
	env *testutil.Env
	srv *echoapi.Server
}

func setup(t *testing.T) *testApp {
	env := testutil.NewEnv(t)
	var logger core.Logger
	require.NoError(t, env.Container.Invoke(func(l core.Logger) { logger = l }))

	srv := echoapi.NewServer(env.Conf, logger, env.Validate, env.Translator, env.Services)
	return &testApp{env: env, srv: srv}
}

// user creates an active user with roles; its username doubles as its password.
func (app *testApp) user(t *testing.T, uname string, roles ...string) (user.User, string) {
	usr := testutil.CreateUser(t, app.env.Users, uname, uname, uname+"@test.io", uname+"-Pa55w0rd!", roles, true)
	token, err := app.srv.TokenFor(usr)
	require.NoError(t, err)
	return usr, token
}

func (app *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return app.serve(req, token)
}

type formFile struct {
	field, name string
	content     []byte
}

func (app *testApp) upload(t *testing.T, path, token string, file formFile, values map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile(file.field, file.name)
	require.NoError(t, err)
	_, err = io.Copy(fw, bytes.NewReader(file.content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return app.serve(req, token)
}

func (app *testApp) serve(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.srv.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := app.do(t, method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func marshal(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	assert.Equal(t, wantCode, rec.Code, rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(marshal(t, tt.wantData)), rec.Body.String())
	}
}
