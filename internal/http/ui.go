package http

import nethttp "net/http"

func dashboardHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.URL.Path != "/" {
		nethttp.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(nethttp.StatusOK)
	_, _ = w.Write([]byte(dashboardHTML))
}

func faviconHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	w.WriteHeader(nethttp.StatusNoContent)
}

// The page only renders server data. Visibility and focus changes are posted
// back so the refresh scheduler can pause and resume.
const dashboardHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Customer Request Dashboard</title>
  <style>
    :root {
      --blue: #0e5d8f;
      --bg: #f7f7f7;
      --paper: #fff;
      --text: #333;
      --muted: #777;
      --line: #ddd;
      --ok: #3c763d;
      --warn: #8a6d3b;
      --bad: #a94442;
    }
    * { box-sizing: border-box; }
    body { margin: 0; font-family: "Open Sans", Arial, sans-serif; background: var(--bg); color: var(--text); }
    header { background: var(--blue); color: #fff; padding: 14px 24px; display: flex; align-items: center; justify-content: space-between; }
    header h1 { font-size: 20px; margin: 0; font-weight: 600; }
    header .actions { display: flex; gap: 8px; align-items: center; }
    button, .button { background: #fff; color: var(--blue); border: 0; border-radius: 3px; padding: 6px 12px; font-size: 13px; cursor: pointer; text-decoration: none; }
    button:disabled { opacity: .6; cursor: default; }
    #state { font-size: 12px; opacity: .85; }
    main { padding: 20px 24px; }
    .cards { display: grid; grid-template-columns: repeat(4, minmax(0, 1fr)); gap: 16px; margin-bottom: 20px; }
    .card { background: var(--paper); border: 1px solid var(--line); border-radius: 4px; padding: 14px 16px; }
    .card .label { color: var(--muted); font-size: 12px; text-transform: uppercase; }
    .card .value { font-size: 28px; font-weight: 600; margin-top: 6px; }
    .pipeline { display: flex; gap: 10px; margin-bottom: 20px; flex-wrap: wrap; }
    .step { background: var(--paper); border: 1px solid var(--line); border-radius: 4px; padding: 8px 12px; font-size: 13px; }
    .step .ok { color: var(--ok); font-weight: 600; }
    table { width: 100%; border-collapse: collapse; background: var(--paper); border: 1px solid var(--line); }
    th, td { text-align: left; padding: 8px 10px; border-bottom: 1px solid #eee; font-size: 13px; }
    th { background: #f0f0f0; font-weight: 600; }
    td.empty { text-align: center; color: var(--muted); padding: 24px; }
    .badge { display: inline-block; padding: 2px 8px; border-radius: 10px; font-size: 12px; background: #eee; }
    .priority-high, .priority-urgent { background: #f2dede; color: var(--bad); }
    .priority-medium { background: #fcf8e3; color: var(--warn); }
    .priority-low { background: #dff0d8; color: var(--ok); }
    .status-completed, .status-done { background: #dff0d8; color: var(--ok); }
    .status-processing, .status-in-progress { background: #d9edf7; color: #31708f; }
    .status-pending { background: #fcf8e3; color: var(--warn); }
    #overlay { position: fixed; inset: 0; background: rgba(255,255,255,.6); display: none; align-items: center; justify-content: center; font-size: 15px; }
    #overlay.show { display: flex; }
    #modal { position: fixed; inset: 0; background: rgba(0,0,0,.35); display: none; align-items: center; justify-content: center; }
    #modal.show { display: flex; }
    #modal .box { background: var(--paper); border-radius: 4px; padding: 20px 24px; max-width: 460px; }
    #modal h2 { margin: 0 0 10px; font-size: 17px; color: var(--bad); }
    @media (max-width: 800px) { .cards { grid-template-columns: repeat(2, minmax(0, 1fr)); } }
  </style>
</head>
<body>
  <header>
    <h1>Customer Request Dashboard</h1>
    <div class="actions">
      <span id="state">idle</span>
      <button id="refresh" type="button">Refresh</button>
      <a class="button" id="export" href="/api/v1/orders/export">Export CSV</a>
    </div>
  </header>
  <main>
    <section class="cards">
      <div class="card"><div class="label">Total Requests</div><div class="value" id="total">0</div></div>
      <div class="card"><div class="label">Today</div><div class="value" id="today">0</div></div>
      <div class="card"><div class="label">Avg Processing</div><div class="value" id="avg">0s</div></div>
      <div class="card"><div class="label">Success Rate</div><div class="value" id="rate">0%</div></div>
    </section>
    <section class="pipeline" id="pipeline"></section>
    <table>
      <thead>
        <tr>
          <th>Time</th><th>Customer</th><th>Phone</th><th>Details</th>
          <th>Priority</th><th>Status</th><th>Assigned To</th>
        </tr>
      </thead>
      <tbody id="rows"><tr><td class="empty" colspan="7">No requests yet</td></tr></tbody>
    </table>
  </main>
  <div id="overlay">Loading data...</div>
  <div id="modal"><div class="box"><h2>Error</h2><p id="modal-text"></p><button id="modal-close" type="button">Close</button></div></div>
  <script>
    (function () {
      var $ = function (id) { return document.getElementById(id); };

      function cell(text, cls) {
        var td = document.createElement("td");
        if (cls) {
          var span = document.createElement("span");
          span.className = "badge " + cls;
          span.textContent = text;
          td.appendChild(span);
        } else {
          td.textContent = text;
        }
        return td;
      }

      function renderRows(rows) {
        var body = $("rows");
        body.textContent = "";
        if (!rows || rows.length === 0) {
          var tr = document.createElement("tr");
          var td = cell("No requests yet");
          td.className = "empty";
          td.colSpan = 7;
          tr.appendChild(td);
          body.appendChild(tr);
          return;
        }
        rows.forEach(function (r) {
          var tr = document.createElement("tr");
          tr.appendChild(cell(r.display_time));
          tr.appendChild(cell(r.customer_name));
          tr.appendChild(cell(r.phone));
          var details = cell(r.details_short);
          details.title = r.details;
          tr.appendChild(details);
          tr.appendChild(cell(r.priority, r.priority_class));
          tr.appendChild(cell(r.status, r.status_class));
          tr.appendChild(cell(r.assigned_to));
          body.appendChild(tr);
        });
      }

      function load() {
        return fetch("/api/v1/dashboard", { cache: "no-store" })
          .then(function (res) { return res.json(); })
          .then(function (body) {
            var s = body.stats_display || {};
            $("total").textContent = s.total || "0";
            $("today").textContent = s.today || "0";
            $("avg").textContent = s.avg_processing || "0s";
            $("rate").textContent = s.success_rate || "0%";
            renderRows(body.data);
          })
          .catch(function (err) { showError("Failed to load data: " + err.message); });
      }

      function loadPipeline() {
        fetch("/api/v1/status/pipeline", { cache: "no-store" })
          .then(function (res) { return res.json(); })
          .then(function (body) {
            var box = $("pipeline");
            box.textContent = "";
            (body.steps || []).forEach(function (step) {
              var div = document.createElement("div");
              div.className = "step";
              div.textContent = step.name + ": ";
              var st = document.createElement("span");
              st.className = "ok";
              st.textContent = step.status;
              div.appendChild(st);
              box.appendChild(div);
            });
          })
          .catch(function () {});
      }

      function showError(msg) {
        $("modal-text").textContent = msg;
        $("modal").classList.add("show");
      }

      function applyState(ev) {
        $("state").textContent = ev.state;
        var busy = ev.state === "fetching";
        $("overlay").classList.toggle("show", busy);
        $("refresh").disabled = busy;
        if (ev.state === "error" && ev.message) {
          showError(ev.message);
        }
        if (ev.state === "idle") {
          load();
        }
      }

      function post(path, payload) {
        return fetch(path, {
          method: "POST",
          headers: { "Content-Type": "application/json" },
          body: payload ? JSON.stringify(payload) : "{}"
        });
      }

      var viewer = null;

      function reportVisibility() {
        var payload = { visible: !document.hidden };
        if (viewer !== null) {
          payload.viewer = viewer;
        }
        post("/api/v1/visibility", payload);
      }

      $("refresh").addEventListener("click", function () { post("/api/v1/refresh"); });
      $("modal-close").addEventListener("click", function () { $("modal").classList.remove("show"); });
      $("export").addEventListener("click", function (e) {
        if ($("total").textContent === "0") {
          e.preventDefault();
          showError("No data to export");
        }
      });
      document.addEventListener("visibilitychange", reportVisibility);
      window.addEventListener("focus", function () { post("/api/v1/focus"); });

      var events = new EventSource("/api/v1/events?visible=" + (document.hidden ? "false" : "true"));
      events.addEventListener("viewer", function (msg) {
        try { viewer = JSON.parse(msg.data).id; } catch (e) { viewer = null; }
        reportVisibility();
      });
      events.addEventListener("state", function (msg) {
        try { applyState(JSON.parse(msg.data)); } catch (e) {}
      });
      events.addEventListener("error", function () { viewer = null; });

      load();
      loadPipeline();
    })();
  </script>
</body>
</html>
`
