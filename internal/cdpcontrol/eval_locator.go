package cdpcontrol

import (
	"encoding/base64"

	"github.com/dgnsrekt/pagecheck/internal/scenario"
)

// jsLocatorHelpers resolves a locator description to elements.
// _resolve returns {els, ox, oy, pending}: ox/oy are the top-level viewport
// offsets of the innermost frame, pending explains an unreachable frame.
const jsLocatorHelpers = `
function _fail(code, msg) { var e = new Error(msg); e.code = code; return e; }
function _resolve(loc) {
  var doc = document, ox = 0, oy = 0;
  for (var fi = 0; fi < loc.frames.length; fi++) {
    var frames = doc.querySelectorAll(loc.frames[fi]);
    if (frames.length === 0) return {els: [], ox: ox, oy: oy, pending: "frame " + loc.frames[fi] + " not found"};
    if (frames.length > 1) throw _fail("` + CodeStrictMode + `", "frame selector " + loc.frames[fi] + " resolved to " + frames.length + " elements");
    var fr = frames[0], inner = null;
    try { inner = fr.contentDocument; } catch (_) {}
    if (!inner || !inner.documentElement) return {els: [], ox: ox, oy: oy, pending: "frame " + loc.frames[fi] + " not accessible"};
    var fr_r = fr.getBoundingClientRect();
    ox += fr_r.left + fr.clientLeft;
    oy += fr_r.top + fr.clientTop;
    doc = inner;
  }
  var current = [doc];
  for (var pi = 0; pi < loc.parts.length; pi++) {
    var part = loc.parts[pi], next = [];
    for (var ri = 0; ri < current.length; ri++) {
      var found = current[ri].querySelectorAll(part.selector);
      for (var ei = 0; ei < found.length; ei++) {
        if (next.indexOf(found[ei]) === -1) next.push(found[ei]);
      }
    }
    if (part.nth !== undefined && part.nth !== null) {
      var idx = part.nth < 0 ? next.length + part.nth : part.nth;
      next = idx >= 0 && idx < next.length ? [next[idx]] : [];
    }
    current = next;
  }
  return {els: current, ox: ox, oy: oy, pending: ""};
}
function _visible(el) {
  if (!el.isConnected) return false;
  var st = el.ownerDocument.defaultView.getComputedStyle(el);
  if (st.visibility === "hidden" || st.visibility === "collapse") return false;
  var r = el.getBoundingClientRect();
  return r.width > 0 && r.height > 0;
}
function _text(el) { return String(el.textContent || "").replace(/\s+/g, " ").trim(); }
function _enabled(el) { return !el.disabled && !(el.closest && el.closest("fieldset[disabled]")); }
function _state(el) {
  return {
    visible: _visible(el),
    enabled: _enabled(el),
    text: _text(el),
    checked: !!el.checked,
    value: el.value === undefined ? "" : String(el.value),
    tag: String(el.tagName || "").toLowerCase(),
    type: String(el.type || "").toLowerCase()
  };
}
function _fire(el, name) {
  var win = el.ownerDocument.defaultView;
  el.dispatchEvent(new win.Event(name, {bubbles: true}));
}
`

// probeState is what a single probe observes about a locator.
type probeState struct {
	Count   int    `json:"count"`
	Pending string `json:"pending,omitempty"`
	Visible bool   `json:"visible"`
	Enabled bool   `json:"enabled"`
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
	Value   string `json:"value"`
	Tag     string `json:"tag"`
	Type    string `json:"type"`
}

// actResult reports whether an action ran, or why the element was not yet
// actionable.
type actResult struct {
	Done   bool    `json:"done"`
	Reason string  `json:"reason,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

type jsLocator struct {
	Frames []string `json:"frames"`
	Parts  []jsPart `json:"parts"`
}

type jsPart struct {
	Selector string `json:"selector"`
	Nth      *int   `json:"nth"`
}

func toJSLocator(l scenario.Locator) jsLocator {
	out := jsLocator{Frames: l.Frames, Parts: make([]jsPart, 0, len(l.Parts))}
	if out.Frames == nil {
		out.Frames = []string{}
	}
	for _, p := range l.Parts {
		out.Parts = append(out.Parts, jsPart{Selector: p.Selector, Nth: p.Nth})
	}
	return out
}

// jsProbe observes the locator without touching the page. The first match
// is described; strictness is decided by the caller from count.
func jsProbe(l scenario.Locator) string {
	return wrapJSEval(jsLocatorHelpers + `
var r = _resolve(` + jsJSON(toJSLocator(l)) + `);
var out = {count: r.els.length, pending: r.pending};
if (r.els.length > 0) {
  var s = _state(r.els[0]);
  for (var k in s) out[k] = s[k];
}
return JSON.stringify({ok:true,data:out});`)
}

// Action names understood by jsAct.
const (
	actClick  = "click"
	actFill   = "fill"
	actCheck  = "check"
	actSelect = "select"
	actFiles  = "files"
	actRect   = "rect"
)

type jsFile struct {
	Name string `json:"name"`
	Mime string `json:"mime"`
	B64  string `json:"b64"`
}

func toJSFiles(files []scenario.FilePayload) []jsFile {
	out := make([]jsFile, 0, len(files))
	for _, f := range files {
		out = append(out, jsFile{Name: f.Name, Mime: f.MimeType, B64: base64.StdEncoding.EncodeToString(f.Content)})
	}
	return out
}

// jsAct resolves the locator, checks actionability and performs action in
// one round trip. Unless strict is false, more than one match throws.
func jsAct(l scenario.Locator, action string, arg any, strict bool) string {
	return wrapJSEval(jsLocatorHelpers + `
var r = _resolve(` + jsJSON(toJSLocator(l)) + `);
var action = ` + jsString(action) + `;
var arg = ` + jsJSON(arg) + `;
function _wait(reason) { return JSON.stringify({ok:true,data:{done:false,reason:reason}}); }
function _done(extra) { var d = extra || {}; d.done = true; return JSON.stringify({ok:true,data:d}); }
if (r.els.length === 0) return _wait(r.pending || "element not found");
if (r.els.length > 1 && ` + jsJSON(strict) + `) throw _fail("` + CodeStrictMode + `", "locator resolved to " + r.els.length + " elements");
var el = r.els[0];
var win = el.ownerDocument.defaultView;
if (action !== "files" && !_visible(el)) return _wait("element is not visible");
if ((action === "click" || action === "fill" || action === "check" || action === "select") && !_enabled(el)) return _wait("element is not enabled");
if (action !== "files" && el.scrollIntoView) el.scrollIntoView({block: "center", inline: "center"});
if (action === "click") {
  el.click();
  return _done();
}
if (action === "fill") {
  var tag = String(el.tagName).toLowerCase();
  if (tag === "input" || tag === "textarea") {
    if (el.readOnly) return _wait("element is not editable");
    var proto = tag === "textarea" ? win.HTMLTextAreaElement.prototype : win.HTMLInputElement.prototype;
    el.focus();
    Object.getOwnPropertyDescriptor(proto, "value").set.call(el, arg);
  } else if (el.isContentEditable) {
    el.focus();
    el.textContent = arg;
  } else {
    throw _fail("` + CodeValidation + `", "element is not an input, textarea or contenteditable");
  }
  _fire(el, "input");
  _fire(el, "change");
  return _done();
}
if (action === "check") {
  var t = String(el.type || "").toLowerCase();
  if (t !== "checkbox" && t !== "radio") throw _fail("` + CodeValidation + `", "element is not a checkbox or radio input");
  if (!el.checked) el.click();
  if (!el.checked) throw _fail("` + CodeEvalFailure + `", "clicking the element did not check it");
  return _done();
}
if (action === "select") {
  if (String(el.tagName).toLowerCase() !== "select") throw _fail("` + CodeValidation + `", "element is not a select");
  var opt = null;
  for (var oi = 0; oi < el.options.length; oi++) {
    var o = el.options[oi];
    if (o.value === arg || o.label === arg) { opt = o; break; }
  }
  if (!opt) return _wait("option " + arg + " not found");
  el.value = opt.value;
  _fire(el, "input");
  _fire(el, "change");
  return _done();
}
if (action === "files") {
  if (String(el.type || "").toLowerCase() !== "file") throw _fail("` + CodeValidation + `", "element is not a file input");
  var dt = new win.DataTransfer();
  for (var fi2 = 0; fi2 < arg.length; fi2++) {
    var bin = atob(arg[fi2].b64);
    var bytes = new Uint8Array(bin.length);
    for (var bi = 0; bi < bin.length; bi++) bytes[bi] = bin.charCodeAt(bi);
    dt.items.add(new win.File([bytes], arg[fi2].name, {type: arg[fi2].mime}));
  }
  el.files = dt.files;
  _fire(el, "input");
  _fire(el, "change");
  return _done();
}
if (action === "rect") {
  var rc = el.getBoundingClientRect();
  return _done({x: rc.left + r.ox + window.scrollX, y: rc.top + r.oy + window.scrollY, width: rc.width, height: rc.height});
}
throw _fail("` + CodeValidation + `", "unknown action " + action);`)
}

// jsEvaluate runs a user expression, awaiting it when it is a promise.
func jsEvaluate(expr string) string {
	return wrapJSEvalAsync(`var __v = await (` + expr + `
);
return JSON.stringify({ok:true,data:__v === undefined ? null : __v});`)
}
