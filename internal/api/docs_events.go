package api

const eventsDocsHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Transition Feed - chart_hover</title>
  <style>
    body {
      margin: 0 auto;
      max-width: 820px;
      padding: 24px;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
      font-size: 14px;
      line-height: 1.65;
      background: #0d1117;
      color: #c9d1d9;
    }
    a { color: #58a6ff; text-decoration: none; }
    code, pre { font-family: ui-monospace, SFMono-Regular, Menlo, monospace; font-size: 13px; }
    pre { background: #161b22; border: 1px solid #30363d; border-radius: 6px; padding: 12px 16px; overflow-x: auto; }
    table { border-collapse: collapse; width: 100%; }
    td, th { border: 1px solid #30363d; padding: 6px 10px; text-align: left; }
  </style>
</head>
<body>
  <p><a href="/docs">&larr; API reference</a></p>
  <h1>Transition feed</h1>
  <p>
    <code>GET /api/v1/events</code> is a server-sent event stream. Every hover
    transition that changes the state or the focused series is published,
    whether the pointer came from the page bridge or from
    <code>POST /api/v1/pointer</code>.
  </p>

  <h2>Feeds</h2>
  <table>
    <tr><th>event</th><th>data</th></tr>
    <tr><td><code>ready</code></td><td><code>{"series": 3}</code> once the chart has been indexed</td></tr>
    <tr><td><code>transition</code></td><td>the transition object, as returned by <code>POST /api/v1/pointer</code> but with the point as <code>{"X","Y"}</code></td></tr>
  </table>
  <p>Filter with <code>?feeds=transition</code>. A <code>: keep-alive</code> comment is sent every 15 seconds.</p>

  <h2>Example</h2>
  <pre><code>curl -N http://127.0.0.1:8190/api/v1/events?feeds=transition

id: 6f0c5c7e-3f7a-4a51-9d55-1c5f0f7f4d0e
event: transition
data: {"from":"browsing","to":"focused","active":"line-graph-a","reason":"text","point":{"X":96,"Y":110},"writes":4}
</code></pre>

  <p>Slow subscribers drop events rather than stall the hover engine.</p>
</body>
</html>`
