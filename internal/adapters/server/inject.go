package server

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
)

// ScriptPath serves the client script that listens for reload events.
const ScriptPath = "/livereload.js"

// EventsPath serves the reload event stream.
const EventsPath = "/livereload"

// clientScript reloads the page on every reload event. Versions are
// deduplicated by the server.
const clientScript = `(() => {
  if (window.__weaveLiveReload) return;
  window.__weaveLiveReload = true;
  function connect() {
    const es = new EventSource("` + EventsPath + `");
    es.addEventListener("reload", () => location.reload());
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();
`

const scriptTag = `<script async src="` + ScriptPath + `"></script>`

// maxInjectSize bounds how much of an HTML response is buffered.
const maxInjectSize = 512 * 1024

func serveScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(clientScript))
}

// injectScript adds the client script tag to HTML pages served by next.
func injectScript(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if !strings.HasSuffix(p, "/") && !strings.HasSuffix(p, ".html") {
			next.ServeHTTP(w, r)
			return
		}
		inj := &injector{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(inj, r)
		inj.finish()
	})
}

// injector buffers an HTML response so the script tag can be placed before
// </body>. Other content types and oversized pages pass through.
type injector struct {
	http.ResponseWriter
	code        int
	buf         bytes.Buffer
	started     bool
	passthrough bool
}

func (i *injector) WriteHeader(code int) {
	i.code = code
}

func (i *injector) Write(data []byte) (int, error) {
	if !i.started {
		i.started = true
		ct := i.Header().Get("Content-Type")
		if ct != "" && !strings.Contains(ct, "text/html") {
			i.passthrough = true
			i.ResponseWriter.WriteHeader(i.code)
		}
	}
	if i.passthrough {
		return i.ResponseWriter.Write(data)
	}
	if i.buf.Len()+len(data) > maxInjectSize {
		i.passthrough = true
		i.Header().Del("Content-Length")
		i.ResponseWriter.WriteHeader(i.code)
		if _, err := i.ResponseWriter.Write(i.buf.Bytes()); err != nil {
			return 0, err
		}
		i.buf.Reset()
		return i.ResponseWriter.Write(data)
	}
	return i.buf.Write(data)
}

func (i *injector) finish() {
	if i.passthrough {
		return
	}
	body := i.buf.Bytes()
	if i.code == http.StatusOK {
		body = insertTag(body)
		i.Header().Set("Content-Length", strconv.Itoa(len(body)))
	}
	i.ResponseWriter.WriteHeader(i.code)
	_, _ = i.ResponseWriter.Write(body)
}

// insertTag places the script tag before the last </body>, or at the end of
// documents without one.
func insertTag(body []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(body), []byte("</body>"))
	if idx < 0 {
		return append(body, scriptTag...)
	}
	out := make([]byte, 0, len(body)+len(scriptTag))
	out = append(out, body[:idx]...)
	out = append(out, scriptTag...)
	return append(out, body[idx:]...)
}
