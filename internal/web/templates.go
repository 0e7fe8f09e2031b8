package web

import "html/template"

const tmplPage = `
{{define "page"}}<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>時間割{{with .Week}} {{.}}{{end}}</title>
<style>
*{box-sizing:border-box}
body{font-family:sans-serif;margin:0;background:#fafafa;color:#222;font-size:15px;line-height:1.5}
main{max-width:880px;margin:0 auto;padding:16px}
h1{font-size:20px;margin:0 0 4px}
h2{font-size:17px;margin:16px 0 8px}
.week{color:#777;font-size:13px;margin:0 0 12px}
form{display:flex;gap:8px;align-items:center}
select{font-size:15px;padding:2px 6px}
.timetable-table{width:100%;border-collapse:collapse;text-align:center;background:#fff}
.timetable-table th,.timetable-table td{border:1px solid #ccc;padding:6px 8px}
.timetable-table th{background:#f0f0f0}
.info-message{color:#555}
.error-message{color:#c62828}
.error-detail{color:#777;font-family:monospace;font-size:12px}
</style>
</head>
<body>
<main>
<h1>時間割</h1>
{{with .Week}}<p class="week">{{.}}</p>{{end}}
<form method="get" action="/">
<label for="class-select">クラス</label>
<select id="class-select" name="class" onchange="this.form.submit()">
{{range .Classes}}<option value="{{.}}"{{if eq . $.Selected}} selected{{end}}>{{.}}</option>
{{end}}</select>
<noscript><button type="submit">表示</button></noscript>
</form>
<div id="timetable-display">
{{with .Grid}}<h2>{{.Title}}</h2>
<table class="timetable-table">
<thead><tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr><td>{{.Period}}</td>{{range .Cells}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>{{end}}
{{with .Info}}<p class="info-message">{{.}}</p>{{end}}
{{with .Error}}<p class="error-message">{{.}}</p>{{end}}
{{with .Detail}}<p class="error-detail">{{.}}</p>{{end}}
</div>
</main>
</body>
</html>
{{end}}`

var pageTemplate = template.Must(template.New("page").Parse(tmplPage))
