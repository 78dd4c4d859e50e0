package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/azure/brand-pulse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedditSource_GetName(t *testing.T) {
	source := NewRedditSource("", "", "")
	assert.Equal(t, "reddit", source.GetName())
	assert.True(t, source.IsEnabled())
}

func TestRedditSource_hasCredentials(t *testing.T) {
	tests := []struct {
		name         string
		clientID     string
		clientSecret string
		expected     bool
	}{
		{name: "Both credentials provided", clientID: "client_id", clientSecret: "client_secret", expected: true},
		{name: "Missing client ID", clientID: "", clientSecret: "client_secret", expected: false},
		{name: "Missing client secret", clientID: "client_id", clientSecret: "", expected: false},
		{name: "Both missing", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := NewRedditSource(tt.clientID, tt.clientSecret, "")
			assert.Equal(t, tt.expected, source.hasCredentials())
		})
	}
}

func newRedditTestSource(handler http.HandlerFunc) (*RedditSource, *httptest.Server) {
	server := httptest.NewServer(handler)
	source := NewRedditSource("", "", "test-agent")
	source.publicURL = server.URL
	return source, server
}

func redditPostJSON(id, title, body string) string {
	return fmt.Sprintf(`{"kind":"t3","data":{"id":%q,"title":%q,"selftext":%q,"author":"u1","subreddit":"cars","permalink":"/r/cars/comments/%s/x/","created_utc":1700000000,"score":12}}`,
		id, title, body, id)
}

func TestRedditSource_SearchAppliesEntityFilter(t *testing.T) {
	var gotLimit string
	source, server := newRedditTestSource(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		fmt.Fprintf(w, `{"kind":"Listing","data":{"children":[%s,%s,%s,%s]}}`,
			redditPostJSON("a", "Tesla's service was awful", ""),
			redditPostJSON("b", "Teslacoil build log", "nothing here"),
			redditPostJSON("c", "Biography", "Nikola Tesla invented a lot of things, Tesla was a genius"),
			redditPostJSON("d", "My car", "I love my Tesla so much"),
		)
	})
	defer server.Close()

	items := source.Search(context.Background(), "Tesla service experience", SearchOptions{Limit: 5, EntityName: "Tesla"})

	assert.Equal(t, "15", gotLimit)
	require.Len(t, items, 2)
	assert.Equal(t, "reddit_a", items[0].ID)
	assert.Equal(t, "reddit_d", items[1].ID)
	assert.Equal(t, "r/cars", items[0].CommunityTag)
	assert.Equal(t, "https://www.reddit.com/r/cars/comments/a/x/", items[0].Permalink)
}

func redditListingHandler(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"data":{"children":[%s]}}`, redditPostJSON("a", "Tesla delivery delayed again", ""))
}

func TestRedditSource_OAuthTokenReusedUntilExpiry(t *testing.T) {
	var tokenHits, searchHits int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		tokenHits++
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client_id", user)
		assert.Equal(t, "client_secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-123","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/search.json", func(w http.ResponseWriter, r *http.Request) {
		searchHits++
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		redditListingHandler(w)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	public := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("public endpoint called with credentials configured: %s", r.URL.Path)
	}))
	defer public.Close()

	source := NewRedditSource("client_id", "client_secret", "test-agent")
	source.tokenURL = server.URL + "/api/v1/access_token"
	source.oauthURL = server.URL
	source.publicURL = public.URL

	for i := 0; i < 2; i++ {
		items := source.Search(context.Background(), "Tesla", SearchOptions{Limit: 5})
		require.Len(t, items, 1)
		assert.Equal(t, "reddit_a", items[0].ID)
	}

	assert.Equal(t, 1, tokenHits)
	assert.Equal(t, 2, searchHits)
}

func TestRedditSource_OAuthFailureFallsBackToPublic(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer tokenServer.Close()

	var publicHits int
	public := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		publicHits++
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		redditListingHandler(w)
	}))
	defer public.Close()

	source := NewRedditSource("client_id", "bad_secret", "test-agent")
	source.tokenURL = tokenServer.URL
	source.oauthURL = tokenServer.URL
	source.publicURL = public.URL

	items := source.Search(context.Background(), "Tesla", SearchOptions{Limit: 5})

	require.Len(t, items, 1)
	assert.Equal(t, 1, publicHits)
}

func TestRedditSource_SearchCapsAtLimit(t *testing.T) {
	source, server := newRedditTestSource(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data":{"children":[%s,%s,%s]}}`,
			redditPostJSON("a", "one", ""), redditPostJSON("b", "two", ""), redditPostJSON("c", "three", ""))
	})
	defer server.Close()

	items := source.Search(context.Background(), "anything", SearchOptions{Limit: 2})
	assert.Len(t, items, 2)
}

func TestRedditSource_SearchDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
	}{
		{name: "Server error", status: 500, contentType: "application/json", body: `{}`},
		{name: "Rate limited", status: 429, contentType: "application/json", body: `{}`},
		{name: "HTML content", status: 200, contentType: "text/html", body: `<html>blocked</html>`},
		{name: "Malformed JSON", status: 200, contentType: "application/json", body: `{"data":`},
		{name: "Wrong shape", status: 200, contentType: "application/json", body: `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, server := newRedditTestSource(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			defer server.Close()

			assert.Empty(t, source.Search(context.Background(), "Tesla", SearchOptions{Limit: 5}))
		})
	}
}

func TestRedditSource_FetchRepliesFlattensDepthFirst(t *testing.T) {
	payload := `[
	  {"kind":"Listing","data":{"children":[]}},
	  {"kind":"Listing","data":{"children":[
	    {"kind":"t1","data":{"id":"c1","body":"first","author":"a","subreddit":"cars","created_utc":1,
	      "replies":{"kind":"Listing","data":{"children":[
	        {"kind":"t1","data":{"id":"c1a","body":"reply to first","author":"b","subreddit":"cars","created_utc":2,
	          "replies":{"kind":"Listing","data":{"children":[
	            {"kind":"t1","data":{"id":"c1a1","body":"deep reply","author":"c","subreddit":"cars","created_utc":3,"replies":""}}
	          ]}}}}
	      ]}}}},
	    {"kind":"t1","data":{"id":"c2","body":"[deleted]","author":"d","subreddit":"cars","created_utc":4,"replies":""}},
	    {"kind":"t1","data":{"id":"c3","body":"second","author":"e","subreddit":"cars","created_utc":5,"replies":""}},
	    {"kind":"more","data":{"count":10}}
	  ]}}
	]`

	var gotPath string
	source, server := newRedditTestSource(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	})
	defer server.Close()

	permalink := server.URL + "/r/cars/comments/abc/title/"
	comments := source.FetchReplies(context.Background(), permalink)

	assert.Equal(t, "/r/cars/comments/abc/title.json", gotPath)
	require.Len(t, comments, 4)
	ids := []string{comments[0].ID, comments[1].ID, comments[2].ID, comments[3].ID}
	assert.Equal(t, []string{"reddit_c1", "reddit_c1a", "reddit_c1a1", "reddit_c3"}, ids)
	assert.Equal(t, permalink, comments[0].ParentPermalink)
}

func TestRedditSource_FetchRepliesMalformed(t *testing.T) {
	for _, body := range []string{`{}`, `[]`, `[{"data":{}}]`, `[{}, {"data":{"children":"nope"}}]`} {
		source, server := newRedditTestSource(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(body))
		})
		assert.Empty(t, source.FetchReplies(context.Background(), "/r/x/comments/1/y/"), body)
		server.Close()
	}
}

func TestHackerNewsSource_SearchAndReplies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		switch {
		case r.URL.Path == "/api/v1/search":
			assert.Equal(t, "story", r.URL.Query().Get("tags"))
			assert.Equal(t, "30", r.URL.Query().Get("hitsPerPage"))
			w.Write([]byte(`{"hits":[
			  {"objectID":"1","title":"Stripe billing is a nightmare","story_text":"<p>Really <i>frustrated</i></p>","author":"pg","created_at_i":1700000000,"points":40},
			  {"objectID":"2","title":"Unrelated post","author":"x","created_at_i":1700000000,"points":1}
			]}`))
		case strings.HasPrefix(r.URL.Path, "/api/v1/items/1"):
			w.Write([]byte(`{"id":1,"children":[
			  {"id":11,"author":"a","text":"<p>Stripe support helped me</p>","created_at_i":1,"children":[
			    {"id":12,"author":"b","text":"Same here","created_at_i":2,"children":[]}
			  ]},
			  {"id":13,"author":"c","text":"","created_at_i":3,"children":[]}
			]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	source := NewHackerNewsSource("")
	source.baseURL = server.URL

	items := source.Search(context.Background(), "stripe", SearchOptions{Limit: 10, EntityName: "Stripe"})
	require.Len(t, items, 1)
	assert.Equal(t, "hackernews_1", items[0].ID)
	assert.Equal(t, "Really frustrated", items[0].Body)

	comments := source.FetchReplies(context.Background(), items[0].Permalink)
	require.Len(t, comments, 2)
	assert.Equal(t, "hackernews_11", comments[0].ID)
	assert.Equal(t, "Stripe support helped me", comments[0].Body)
	assert.Equal(t, "hackernews_12", comments[1].ID)

	assert.Empty(t, source.FetchReplies(context.Background(), "https://example.com/nothing"))
}

func TestEntityFilter_WordBoundary(t *testing.T) {
	f := NewEntityFilter("Tesla")

	tests := []struct {
		name     string
		title    string
		body     string
		expected bool
	}{
		{name: "Possessive matches", title: "Tesla's service", expected: true},
		{name: "Embedded word rejected", title: "Teslacoil", expected: false},
		{name: "Case insensitive", title: "", body: "my TESLA is great", expected: true},
		{name: "Homonym denylisted", title: "", body: "Nikola Tesla was brilliant", expected: false},
		{name: "Unit usage denylisted", title: "Tesla", body: "Our MRI runs at 3 tesla", expected: false},
		{name: "Field strength denylisted", title: "", body: "A 1.5 tesla magnetic field is standard for clinical scans", expected: false},
		{name: "Model year kept", title: "My 2023 Tesla Model Y service experience was awful", expected: true},
		{name: "Ownership count kept", title: "", body: "I have owned 2 Teslas and the service center is a nightmare", expected: true},
		{name: "Number near unrelated words kept", title: "3 Tesla owners told me the app keeps crashing", expected: true},
		{name: "Job posting denylisted", title: "Tesla - we're hiring!", expected: false},
		{name: "Outside body window", title: "", body: strings.Repeat("x ", 300) + "Tesla", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.Matches(tt.title, tt.body))
		})
	}
}

func TestEntityPattern_EscapesMetacharacters(t *testing.T) {
	p := EntityPattern("AT&T")
	assert.True(t, p.MatchString("I switched from at&t last year"))
	assert.False(t, p.MatchString("I switched from atxt last year"))

	p = EntityPattern("Tesla")
	assert.True(t, p.MatchString("two Teslas in the garage"))
	assert.False(t, p.MatchString("Teslastrasse"))

	p = EntityPattern("C++")
	assert.False(t, p.MatchString("CCC"))
}

func TestDeduplicateItems(t *testing.T) {
	items := []models.SourceItem{
		{ID: "1", Title: "First mention"},
		{ID: "2", Title: "Second mention"},
		{ID: "1", Title: "Duplicate mention"},
		{ID: "3", Title: "Third mention"},
	}

	unique := DeduplicateItems(items)

	require.Len(t, unique, 3)
	assert.Equal(t, "2", unique[0].ID)
	assert.Equal(t, "1", unique[1].ID)
	assert.Equal(t, "Duplicate mention", unique[1].Title)
	assert.Equal(t, "3", unique[2].ID)
}

func TestDeduplicateItems_SizeMatchesDistinctIDs(t *testing.T) {
	orderings := [][]string{
		{"a", "b", "a", "c", "b", "a"},
		{"c", "c", "c"},
		{"a", "b", "c", "d"},
		{},
	}

	for _, ids := range orderings {
		var items []models.SourceItem
		distinct := map[string]bool{}
		for _, id := range ids {
			items = append(items, models.SourceItem{ID: id})
			distinct[id] = true
		}
		assert.Len(t, DeduplicateItems(items), len(distinct))
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"reddit", "hackernews", "stackexchange"} {
		s, err := New(name, Credentials{UserAgent: "agent"})
		require.NoError(t, err)
		assert.Equal(t, name, s.GetName())
	}

	_, err := New("twitter", Credentials{})
	assert.Error(t, err)
}
