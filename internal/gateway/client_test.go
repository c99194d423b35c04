package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{URL: srv.URL + "/", APIKey: "anon-key"})
	require.NoError(t, err)
	return c
}

func TestNewRequiresURLAndKey(t *testing.T) {
	_, err := New(Config{APIKey: "k"})
	assert.Error(t, err)
	_, err = New(Config{URL: "http://x"})
	assert.Error(t, err)
}

func TestSelectBuildsPostgRESTQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/cards", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "*", q.Get("select"))
		assert.Equal(t, "eq.user-1", q.Get("user_id"))
		assert.Equal(t, "created_at.desc", q.Get("order"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id":"c1"}]`))
	})

	resp, err := c.From("cards").Select("*").Eq("user_id", "user-1").Order("created_at", false).Execute(context.Background())
	require.NoError(t, err)
	require.NoError(t, resp.Err())

	var rows []map[string]any
	require.NoError(t, resp.JSON(&rows))
	assert.Len(t, rows, 1)
}

func TestCallerTokenReplacesBearer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer user-jwt", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	})

	ctx := WithAccessToken(context.Background(), "user-jwt")
	_, err := c.From("cards").Select("*").Execute(ctx)
	require.NoError(t, err)
}

func TestSingleNoRowsIsDetected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.pgrst.object+json", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = w.Write([]byte(`{"code":"PGRST116","details":"The result contains 0 rows","message":"JSON object requested, multiple (or no) rows returned"}`))
	})

	resp, err := c.From("profiles").Select("*").Eq("id", "u1").Single().Execute(context.Background())
	require.NoError(t, err)
	err = resp.Err()
	require.Error(t, err)
	assert.True(t, IsNoRows(err))

	var gerr *Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, http.StatusNotAcceptable, gerr.Status)
}

func TestUpsertSetsMergeHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "id", r.URL.Query().Get("on_conflict"))
		assert.Equal(t, "resolution=merge-duplicates,return=representation", r.Header.Get("Prefer"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"id":"u1"}`, string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"id":"u1"}]`))
	})

	resp, err := c.From("profiles").Upsert("id").ExecuteInsert(context.Background(), map[string]string{"id": "u1"})
	require.NoError(t, err)
	assert.NoError(t, resp.Err())
}

func TestRPCPostsParams(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/admin_update_account_balance", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"account_id_param":"a1"}`, string(body))
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	resp, err := c.RPC(context.Background(), "admin_update_account_balance", map[string]string{"account_id_param": "a1"})
	require.NoError(t, err)
	assert.NoError(t, resp.Err())
}

func TestFriendlyMapsKnownMessages(t *testing.T) {
	cases := map[string]string{
		`{"msg":"User already registered"}`:                                  "This email is already registered",
		`{"message":"new row violates row-level security policy for table"}`: "Database security configuration error. Please contact support.",
		`{"error_description":"Invalid login credentials"}`:                  "Invalid email or password",
		`{"message":"something else"}`:                                       "fallback",
	}
	for body, want := range cases {
		err := parseError(http.StatusBadRequest, []byte(body))
		assert.Equal(t, want, Friendly(err, "fallback"), body)
	}
	assert.Equal(t, "fallback", Friendly(errors.New("plain"), "fallback"))
}

func TestSignUpAcceptsBareUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"u1","email":"jane@example.com"}`))
	})

	resp, err := c.Auth().SignUp(context.Background(), "jane@example.com", "Secret1!")
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Empty(t, resp.AccessToken)
}

func TestSignUpDuplicate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":"user_already_exists","msg":"User already registered"}`))
	})

	_, err := c.Auth().SignUp(context.Background(), "jane@example.com", "Secret1!")
	require.Error(t, err)
	assert.True(t, IsDuplicateUser(err))
}

func TestUploadReturnsPublicURL(t *testing.T) {
	var base string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/storage/v1/object/public/selfies/a.jpg", r.URL.Path)
		assert.Equal(t, "false", r.Header.Get("x-upsert"))
		assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"Key":"public/selfies/a.jpg"}`))
	})
	base = c.baseURL

	u, err := c.Storage().Upload(context.Background(), "public", "selfies/a.jpg", []byte{1, 2}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, base+"/storage/v1/object/public/public/selfies/a.jpg", u)
}
