package wire

import (
	"strings"
	"testing"
)

func TestReadRequest(t *testing.T) {
	tests := map[string]struct {
		raw     string
		lim     Limits
		wantErr int // expected Status.Code, 0 if no error expected
		check   func(t *testing.T, r *Request)
	}{
		"simple content-length body": {
			raw: "POST /exec HTTP/1.1\r\n" +
				"Host: local\r\n" +
				"Content-Type: application/x-www-form-urlencoded\r\n" +
				"Content-Length: 15\r\n" +
				"\r\n" +
				"tool=echo&arg=A",
			check: func(t *testing.T, r *Request) {
				if r.Method != "POST" || r.Path != "/exec" {
					t.Fatalf("got method=%q path=%q", r.Method, r.Path)
				}
				if got := r.FormValue("tool"); got != "echo" {
					t.Fatalf("tool = %q", got)
				}
				if got := r.FormValues("arg"); len(got) != 1 || got[0] != "A" {
					t.Fatalf("arg = %v", got)
				}
			},
		},
		"repeating arg fields preserve order": {
			raw: "POST /exec HTTP/1.1\r\n" +
				"Content-Type: application/x-www-form-urlencoded\r\n" +
				"Content-Length: 23\r\n" +
				"\r\n" +
				"arg=one&arg=two&arg=thr",
			check: func(t *testing.T, r *Request) {
				got := r.FormValues("arg")
				want := []string{"one", "two", "thr"}
				if len(got) != len(want) {
					t.Fatalf("got %v want %v", got, want)
				}
				for i := range want {
					if got[i] != want[i] {
						t.Fatalf("got %v want %v", got, want)
					}
				}
			},
		},
		"chunked body": {
			raw: "POST /exec HTTP/1.1\r\n" +
				"Transfer-Encoding: chunked\r\n" +
				"\r\n" +
				"4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n",
			check: func(t *testing.T, r *Request) {
				if string(r.Body) != "Wikipedia" {
					t.Fatalf("body = %q", r.Body)
				}
			},
		},
		"duplicate content-length rejected": {
			raw: "POST /exec HTTP/1.1\r\n" +
				"Content-Length: 1\r\n" +
				"Content-Length: 1\r\n" +
				"\r\nA",
			wantErr: 400,
		},
		"content-length and chunked both present rejected": {
			raw: "POST /exec HTTP/1.1\r\n" +
				"Content-Length: 1\r\n" +
				"Transfer-Encoding: chunked\r\n" +
				"\r\nA",
			wantErr: 400,
		},
		"body exceeding cap rejected": {
			raw: "POST /exec HTTP/1.1\r\n" +
				"Content-Length: 100\r\n" +
				"\r\n" + strings.Repeat("x", 100),
			lim:     Limits{BodyCap: 10},
			wantErr: 413,
		},
		"header block exceeding cap rejected": {
			raw:     "GET / HTTP/1.1\r\n" + strings.Repeat("X-Pad: "+strings.Repeat("a", 100)+"\r\n", 50) + "\r\n",
			lim:     Limits{HeaderCap: 64},
			wantErr: 413,
		},
		"body larger than header cap but within body cap is accepted": {
			raw: "POST /exec HTTP/1.1\r\n" +
				"Content-Length: 2000\r\n" +
				"\r\n" + strings.Repeat("x", 2000),
			lim: Limits{HeaderCap: 64, BodyCap: 4096},
			check: func(t *testing.T, r *Request) {
				if len(r.Body) != 2000 {
					t.Fatalf("body len = %d, want 2000", len(r.Body))
				}
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req, err := ReadRequest(strings.NewReader(tc.raw), tc.lim)
			if tc.wantErr != 0 {
				st, ok := AsStatus(err)
				if !ok {
					t.Fatalf("expected *Status error, got %v", err)
				}
				if st.Code != tc.wantErr {
					t.Fatalf("status = %d, want %d", st.Code, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tc.check(t, req)
		})
	}
}

func TestHeaderCaseInsensitive(t *testing.T) {
	var h Header
	h.Add("Authorization", "Bearer xyz")
	if got := h.Get("authorization"); got != "Bearer xyz" {
		t.Fatalf("got %q", got)
	}
	if h.Count("AUTHORIZATION") != 1 {
		t.Fatalf("count = %d", h.Count("AUTHORIZATION"))
	}
}
