package web

// Embedded page templates. The layout follows a fixed top menu with the
// page content below it.
const pageHTML = `
{{define "head"}}
<!DOCTYPE html>
<html>
<head>
<title>DCNN</title>
<style>
body { font-family: sans-serif; margin: 1em; }
table { border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #ccc; padding: 0.3em 0.8em; text-align: right; }
th { background: #eee; }
td.name, th.name { text-align: left; }
ul.menu { list-style: none; margin: 0; padding: 0; }
ul.menu li { display: inline-block; margin-right: 1em; }
ul.menu a.selected { font-weight: bold; }
tr.summary td { font-style: italic; }
div.plot { display: inline-block; vertical-align: top; }
</style>
</head>
<body>
<ul class="menu">
{{range .Menu}}<li><a href="{{.Url}}" {{if .Selected}}class="selected"{{end}}>{{.Name}}</a></li>{{end}}
</ul>
<h2>{{.Heading}}</h2>
{{end}}

{{define "foot"}}
</body>
</html>
{{end}}

{{define "runs"}}
{{template "head" .}}
<table>
<tr><th class="name">run</th><th class="name">model</th><th class="name">dataset</th>
<th>folds</th><th>accuracy</th><th>auc</th><th class="name">started</th><th>elapsed</th></tr>
{{range .Runs}}
<tr>
<td class="name"><a href="/run/{{.ID}}">{{.ID}}</a></td>
<td class="name">{{.Model}}</td>
<td class="name">{{.DataSet}}</td>
<td>{{.Folds}}</td>
<td>{{.Accuracy}}</td>
<td>{{.AUC}}</td>
<td class="name">{{.Started}}</td>
<td>{{.Elapsed}}</td>
</tr>
{{end}}
</table>
{{template "foot" .}}
{{end}}

{{define "run"}}
{{template "head" .}}
<table>
<tr><th>fold</th>{{range .Metrics}}<th>{{.}}</th>{{end}}</tr>
{{range .Folds}}
<tr><td>{{.Fold}}</td>{{range .Values}}<td>{{.}}</td>{{end}}</tr>
{{end}}
{{range .Summaries}}
<tr class="summary"><td class="name">{{.Name}}</td>{{range .Values}}<td>{{.}}</td>{{end}}</tr>
{{end}}
</table>
<div class="plot">{{.ROCPlot 500 400}}</div>
{{template "foot" .}}
{{end}}

{{define "live"}}
{{template "head" .}}
<p id="status">waiting for training updates</p>
<table id="stats">
<tr><th>fold</th><th>epoch</th><th>loss</th><th>train error</th><th>test error</th></tr>
</table>
<script>
var ws = new WebSocket("ws://" + window.location.host + "/ws");
ws.onmessage = function(ev) {
	var s = JSON.parse(ev.data);
	document.getElementById("status").textContent =
		"fold " + s.fold + " epoch " + s.epoch;
	var row = document.getElementById("stats").insertRow(1);
	var vals = [s.fold, s.epoch].concat(s.values.map(function(v) { return v.toFixed(4); }));
	for (var i = 0; i < vals.length; i++) {
		row.insertCell(i).textContent = vals[i];
	}
};
</script>
{{template "foot" .}}
{{end}}
`
