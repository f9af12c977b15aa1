package server

import (
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"
)

func serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, struct{ ChatPath string }{ChatPath: ChatPath}); err != nil {
		log.Debug().Err(err).Msg("[server] render index")
	}
}

// The page script follows the same client contract as the Go client: raw text
// out, {user, message} or bare text in, one list item per frame.
var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>wschat</title>
  <style>
    body { margin:0; padding:24px; font-family: ui-sans-serif, system-ui, sans-serif }
    .wrap { max-width: 720px; margin: 0 auto }
    ul { list-style:none; padding:0; border:1px solid #ddd; min-height:240px }
    .list-group-item { padding:6px 10px; border-bottom:1px solid #eee }
    textarea { width:100%; box-sizing:border-box }
  </style>
</head>
<body>
  <div class="wrap">
    <h1>wschat</h1>
    <ul id="room-messages"></ul>
    <form id="user-form">
      <textarea id="user-message" rows="3" placeholder="Ctrl+Enter to send"></textarea>
      <button type="submit">Send</button>
    </form>
  </div>
  <script>
    const path = {{.ChatPath}};
    const scheme = location.protocol === "https:" ? "wss" : "ws";
    const socket = new WebSocket(scheme + "://" + location.host + path);
    socket.binaryType = "arraybuffer";
    const utf8 = new TextDecoder();
    const list = document.getElementById("room-messages");
    const input = document.getElementById("user-message");

    function displayLine(body) {
      try {
        const p = JSON.parse(body);
        if (p && typeof p.user === "string" && typeof p.message === "string") {
          return p.message + " " + p.user;
        }
      } catch (e) {}
      return body;
    }

    function submit() {
      const text = input.value;
      if (text !== "" && socket.readyState === WebSocket.OPEN) {
        socket.send(text);
      }
      input.value = "";
    }

    input.addEventListener("keydown", function (e) {
      if (e.ctrlKey && e.key === "Enter") {
        e.preventDefault();
        submit();
      }
    });

    document.getElementById("user-form").addEventListener("submit", function (e) {
      e.preventDefault();
      submit();
    });

    socket.addEventListener("message", function (e) {
      // Binary frames are shown as their UTF-8 text, one line each.
      const body = typeof e.data === "string" ? e.data : utf8.decode(e.data);
      const li = document.createElement("li");
      li.className = "list-group-item";
      li.textContent = displayLine(body);
      list.appendChild(li);
    });
  </script>
</body>
</html>
`))
