package html

import "html/template"

// Templates are parsed once at startup; a parse failure is a programming
// error and panics via template.Must.
var (
	pageTopTmpl  = template.Must(template.New("pageTop").Parse(pageTopTemplate))
	headerTmpl   = template.Must(template.New("header").Parse(headerTemplate))
	postTmpl     = template.Must(template.New("post").Parse(postTemplate))
	footerTmpl   = template.Must(template.New("footer").Parse(footerTemplate))
	errorTmpl    = template.Must(template.New("error").Parse(errorTemplate))
	landingTmpl  = template.Must(template.New("landing").Parse(landingTemplate))
	fragmentTmpl = template.Must(template.New("streamError").Parse(streamErrorTemplate))
)

const pageTopTemplate = `<!doctype html>
<html{{if .Lang}} lang="{{.Lang}}"{{end}}>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
{{if .FaviconURL}}<link rel="icon" href="{{.FaviconURL}}">{{end}}
<meta property="og:title" content="{{.Title}}">
{{if .CanonicalURL}}<meta property="og:url" content="{{.CanonicalURL}}">{{end}}
<style>` + pageCSS + `</style>
</head>
<body>
`

const headerTemplate = `<header class="author">
<a href="{{.ProfileURL}}" target="_blank" rel="noopener">
{{if .AvatarURL}}<img src="{{.AvatarURL}}" alt="" class="avatar">{{else}}<span class="avatar avatar-placeholder"></span>{{end}}
<span class="author-names"><span class="display-name">{{.Name}}</span><span class="handle">@{{.Handle}}</span></span>
</a>
</header>
<main class="thread">
`

const postTemplate = `<article class="post">
<div class="post-text">{{.Text}}</div>
{{.EmbedHTML}}<a href="{{.PostURL}}" target="_blank" rel="noopener" class="post-meta"><time datetime="{{.CreatedAtISO}}">{{.Timestamp}}</time>{{if .Likes}} &middot; {{.Likes}} likes{{end}}{{if .Reposts}} &middot; {{.Reposts}} reposts{{end}}</a>
</article>
`

const footerTemplate = `</main>
<footer>
<a href="{{.OriginalURL}}" target="_blank" rel="noopener">View original on Bluesky</a>
{{if .Poll}}<button id="refresh" class="refresh" type="button">Check for new posts</button>{{end}}
</footer>
{{if .Poll}}<script>` + pollScript + `</script>{{end}}
</body>
</html>
`

const streamErrorTemplate = `</main>
<footer class="stream-error">
<p>The rest of this thread could not be loaded: {{.Message}}</p>
</footer>
</body>
</html>
`

const errorTemplate = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Status}} {{.Title}} - sklonger</title>
<style>` + pageCSS + `</style>
</head>
<body>
<main class="error-page">
<h1>{{.Status}} {{.Title}}</h1>
<p>{{.Message}}</p>
<p><a href="/">Back to sklonger</a></p>
</main>
</body>
</html>
`

const landingTemplate = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>sklonger - read Bluesky threads in one page</title>
<style>` + pageCSS + `</style>
</head>
<body>
<main class="landing">
<h1>sklonger</h1>
<p>Paste a link to any post in a Bluesky self-reply thread and read the whole thing on one page.</p>
<form action="/thread" method="get">
<input type="url" name="url" placeholder="https://bsky.app/profile/user.bsky.social/post/..." required>
<button type="submit">Read thread</button>
</form>
</main>
</body>
</html>
`

const pageCSS = `
:root{color-scheme:light dark}
body{margin:0 auto;max-width:600px;padding:0 16px;font-family:-apple-system,system-ui,sans-serif;line-height:1.5}
.author a{display:flex;align-items:center;gap:12px;padding:20px 0;text-decoration:none;color:inherit}
.avatar{width:48px;height:48px;border-radius:50%;background:#8884}
.author-names{display:flex;flex-direction:column}
.display-name{font-weight:700}
.handle{opacity:.7;font-size:.9em}
.post{padding:14px 0;border-bottom:1px solid #8883}
.post-text{white-space:pre-wrap;overflow-wrap:break-word}
.post-meta{display:block;margin-top:8px;font-size:.85em;opacity:.7;text-decoration:none;color:inherit}
.embed-images img,.embed-video video{max-width:100%;border-radius:8px;margin-top:8px}
.embed-images.grid{display:grid;grid-template-columns:1fr 1fr;gap:4px}
.embed-external,.embed-record{display:block;margin-top:8px;padding:10px;border:1px solid #8883;border-radius:8px;text-decoration:none;color:inherit}
.external-title,.record-author-name{font-weight:600}
.external-description,.record-meta{font-size:.85em;opacity:.7}
.record-header{display:flex;align-items:center;gap:8px}
.record-header .avatar{width:24px;height:24px}
footer{padding:24px 0;display:flex;gap:16px;align-items:center}
.refresh{cursor:pointer}
.error-page,.landing{padding:48px 0;text-align:center}
.landing input{width:100%;padding:10px;margin:16px 0;box-sizing:border-box}
.stream-error{color:#c33}
`

// pollScript is the browser half of the update protocol: adaptive backoff
// on quiet polls, harder backoff on transport errors, staleness stop,
// visibility-aware suspension, and a manual refresh that bypasses the
// timer. Mirrors internal/poll.
const pollScript = `
(function(){
var cfg={{.Poll}};
var interval=cfg.initial,cursor=cfg.cursor,timer=null,last=Date.now(),stopped=false;
var main=document.querySelector("main.thread");
function schedule(d){clearTimeout(timer);timer=setTimeout(poll,d);}
function poll(){
  if(document.hidden)return;
  last=Date.now();
  fetch("/poll?handle="+encodeURIComponent(cfg.handle)+"&post="+encodeURIComponent(cfg.post)+"&since="+encodeURIComponent(cursor))
  .then(function(r){
    if(r.status===200){
      return r.text().then(function(body){
        cursor=r.headers.get("X-Sklonger-Cursor")||cursor;
        var tpl=document.createElement("template");tpl.innerHTML=body;
        main.appendChild(tpl.content);
        interval=cfg.initial;stopped=false;schedule(interval);
      });
    }
    if(r.headers.get("X-Sklonger-Stale")==="1"){stopped=true;clearTimeout(timer);return;}
    if(!r.ok){interval=Math.min(interval*2,cfg.max);schedule(interval);return;}
    interval=Math.min(interval*1.5,cfg.max);schedule(interval);
  })
  .catch(function(){interval=Math.min(interval*2,cfg.max);schedule(interval);});
}
document.addEventListener("visibilitychange",function(){
  if(document.hidden){clearTimeout(timer);return;}
  if(stopped)return;
  var elapsed=Date.now()-last;
  if(elapsed>=interval){poll();}else{schedule(interval-elapsed);}
});
var btn=document.getElementById("refresh");
if(btn)btn.addEventListener("click",function(){stopped=false;poll();});
schedule(interval);
})();
`
