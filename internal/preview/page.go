package preview

import "html/template"

var pageTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>livepart preview</title>
</head>
<body>
<div id="app">{{.}}</div>
<script>
(function () {
  var app = document.getElementById("app");
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/ws");
  ws.onmessage = function (ev) {
    var frame = JSON.parse(ev.data);
    app.innerHTML = frame.html;
    if (frame.session) {
      app.dataset.session = frame.session;
    }
  };
  ["click", "input", "change"].forEach(function (type) {
    app.addEventListener(type, function (ev) {
      var el = ev.target.closest("[id]");
      if (!el || el === app || ws.readyState !== WebSocket.OPEN) {
        return;
      }
      var msg = {id: el.id, type: type};
      if (type !== "click") {
        msg.detail = el.value;
      }
      ws.send(JSON.stringify(msg));
    });
  });
})();
</script>
</body>
</html>
`))
