package cdpcontrol

import (
	"encoding/json"

	"github.com/dgnsrekt/chart_hover/internal/chart"
)

// RefAttribute tags every tracked element in the page with its handle.
const RefAttribute = "data-chart-hover-ref"

// jsBridgeFrame computes the per-event view of the chart in client
// coordinates: root box, label boxes keyed by series id and the screen CTM
// of the nearest enclosing svg element. A root without one has no CTM.
const jsBridgeFrame = `
function _frame(st, x, y) {
  var b = st.root.getBoundingClientRect();
  var labels = {};
  for (var i = 0; i < st.series.length; i++) {
    var s = st.series[i];
    if (!s.label || !s.label.isConnected) continue;
    var r = s.label.getBoundingClientRect();
    labels[s.id] = [r.left, r.top, r.right, r.bottom];
  }
  var m = null;
  try {
    var svg = st.root.closest('svg');
    if (svg) m = svg.getScreenCTM();
  } catch (_) {}
  return {
    x: x, y: y,
    chart: st.root.isConnected ? [b.left, b.top, b.right, b.bottom] : null,
    labels: labels,
    ctm: m ? [m.a, m.b, m.c, m.d, m.e, m.f] : null
  };
}
`

// jsInstall locates the chart root, tags series elements with their handles
// using the same traversal and id de-duplication as chart.Index, records
// the tracked styles and starts forwarding pointer moves to the binding.
// A missing root reports found=false and installs nothing.
func jsInstall(binding string, sel chart.Selectors) string {
	props := []chart.Property{chart.FillOpacity, chart.Stroke, chart.FontSize, chart.Fill}
	return wrapJSEval(jsBridgeFrame + `
var sel = ` + jsJSON(sel) + `;
var props = ` + jsJSON(props) + `;
var refAttr = ` + jsString(RefAttribute) + `;
var binding = ` + jsString(binding) + `;
var markerTags = ` + jsJSON(chart.MarkerTags) + `.join(",");
var lineTags = ` + jsJSON(chart.LineTags) + `.join(",");

var root = document.getElementById(sel.RootID);
if (!root) return JSON.stringify({ok:true,data:{found:false}});

var prev = window.__chartHover;
if (prev && typeof prev.teardown === "function") prev.teardown();

function byPrefix(el, prefix) {
  return el.querySelectorAll('[id^="' + CSS.escape(prefix) + '"]');
}

var st = {root: root, series: [], refs: {}};
var styles = {};
function track(el, ref) {
  el.setAttribute(refAttr, ref);
  st.refs[ref] = el;
  var cs = getComputedStyle(el);
  var rec = {inline: {}, computed: {}};
  for (var p = 0; p < props.length; p++) {
    rec.inline[props[p]] = el.style.getPropertyValue(props[p]);
    rec.computed[props[p]] = cs.getPropertyValue(props[p]);
  }
  styles[ref] = rec;
}

var seen = {};
var groups = byPrefix(root, sel.SeriesPrefix);
for (var i = 0; i < groups.length; i++) {
  var g = groups[i];
  var id = g.id;
  if (seen[id]) {
    var n = 2;
    while (seen[g.id + "#" + n]) n++;
    id = g.id + "#" + n;
  }
  seen[id] = true;

  var label = g.querySelector("text");
  if (label) track(label, id + "/label");
  var mg = byPrefix(g, sel.MarkersPrefix)[0];
  if (mg) {
    var ms = mg.querySelectorAll(markerTags);
    for (var j = 0; j < ms.length; j++) track(ms[j], id + "/marker/" + j);
  }
  var lg = byPrefix(g, sel.PolylinePrefix)[0];
  if (lg) {
    var ls = lg.querySelectorAll(lineTags);
    for (var k = 0; k < ls.length; k++) track(ls[k], id + "/line/" + k);
  }
  st.series.push({id: id, label: label});
}

function onMove(e) {
  if (typeof window[binding] !== "function") return;
  var f = _frame(st, e.clientX, e.clientY);
  f.type = "move";
  window[binding](JSON.stringify(f));
}
function onLeave() {
  if (typeof window[binding] !== "function") return;
  window[binding](JSON.stringify({type: "leave"}));
}
document.addEventListener("mousemove", onMove, true);
document.documentElement.addEventListener("mouseleave", onLeave);
st.frame = function(x, y) { return _frame(st, x, y); };
st.teardown = function() {
  document.removeEventListener("mousemove", onMove, true);
  document.documentElement.removeEventListener("mouseleave", onLeave);
};
window.__chartHover = st;

return JSON.stringify({ok:true,data:{found:true,markup:root.outerHTML,styles:styles}});`)
}

// jsFrame reports the current frame for an injected pointer position.
func jsFrame(x, y float64) string {
	return wrapJSEval(`
var st = window.__chartHover;
if (!st || typeof st.frame !== "function") {
  return JSON.stringify({ok:false,error_code:"` + CodeChartNotFound + `",error_message:"hover bridge not installed"});
}
return JSON.stringify({ok:true,data:st.frame(` + jsJSON(x) + `, ` + jsJSON(y) + `)});`)
}

// styleWrite is one inline style mutation: [ref, property, value]; an empty
// value removes the declaration.
type styleWrite [3]string

// jsApplyStyles performs a batch of writes in one evaluation. Handles whose
// element has left the document are counted and skipped.
func jsApplyStyles(writes []styleWrite) string {
	return wrapJSEval(`
var st = window.__chartHover;
if (!st || !st.refs) {
  return JSON.stringify({ok:false,error_code:"` + CodeChartNotFound + `",error_message:"hover bridge not installed"});
}
var w = ` + jsJSON(writes) + `;
var applied = 0, missing = 0;
for (var i = 0; i < w.length; i++) {
  var el = st.refs[w[i][0]];
  if (!el || !el.isConnected) { missing++; continue; }
  if (w[i][2] === "") el.style.removeProperty(w[i][1]);
  else el.style.setProperty(w[i][1], w[i][2]);
  applied++;
}
return JSON.stringify({ok:true,data:{applied:applied,missing:missing}});`)
}

// jsUninstall removes the listeners and element tags.
func jsUninstall() string {
	return wrapJSEval(`
var st = window.__chartHover;
if (st) {
  if (typeof st.teardown === "function") st.teardown();
  for (var ref in st.refs) {
    if (st.refs[ref] && st.refs[ref].removeAttribute) st.refs[ref].removeAttribute(` + jsString(RefAttribute) + `);
  }
  delete window.__chartHover;
}
return JSON.stringify({ok:true});`)
}

func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func jsJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// wrapJSEval runs body in a function scope and turns a thrown exception into
// an EVAL_FAILURE envelope.
func wrapJSEval(body string) string {
	return `(function(){
try {
` + body + `
} catch (err) {
return JSON.stringify({ok:false,error_code:"` + CodeEvalFailure + `",error_message:String(err && err.message || err)});
}
})()`
}
