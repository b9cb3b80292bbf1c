package gallery

// pageTemplate renders the whole gallery as one static page. Everything is
// inlined so the output directory works from file:// and any dumb web host.
const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 0; background: #111; color: #ddd; }
header { padding: 1rem 2rem; background: #1a1a1a; }
h1 { margin: 0; font-size: 1.4rem; }
.summary { color: #888; font-size: .85rem; margin-top: .3rem; }
.artist { padding: 1rem 2rem; }
.artist h2 { border-bottom: 1px solid #333; padding-bottom: .3rem; }
.post { margin: 1.5rem 0; }
.post h3 { margin: .2rem 0; font-size: 1rem; }
.post .date { color: #888; font-size: .8rem; }
.post .text { white-space: pre-wrap; color: #aaa; font-size: .85rem; max-width: 60rem; }
.items { display: flex; flex-wrap: wrap; gap: .5rem; margin-top: .5rem; }
.items img, .items video { max-height: 240px; max-width: 320px; display: block; }
.preserved { font-size: .85rem; margin-top: .4rem; }
.preserved a { color: #7ab; }
</style>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
<div class="summary">{{.Summary}}</div>
</header>
{{range .Artists}}
<section class="artist">
<h2>{{.Name}}</h2>
{{range .Posts}}
<div class="post">
<h3>{{.Title}}</h3>
<div class="date">{{.Date}}</div>
{{if .Text}}<div class="text">{{.Text}}</div>{{end}}
<div class="items">
{{range .Items}}
{{if .IsVideo}}<video controls preload="none"{{if .Thumb}} poster="{{.Thumb}}"{{end}}><source src="{{.Src}}"></video>
{{else}}<a href="{{.Src}}"><img src="{{.Src}}" loading="lazy" alt=""></a>
{{end}}
{{end}}
</div>
{{if .Preserved}}
<div class="preserved">Source files:
{{range .Preserved}}<a href="{{.Href}}" download>{{.Name}}</a> (from {{.Archive}}) {{end}}
</div>
{{end}}
</div>
{{end}}
</section>
{{end}}
</body>
</html>
`
