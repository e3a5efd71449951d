package response

// Homepage is served with 200 when the resolver would otherwise return
// NOT_FOUND for "/index.html" at the document root, so a freshly
// provisioned server shows something other than a 404.
const Homepage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>It works</title>
<style>
body{font-family:sans-serif;max-width:40em;margin:4em auto;color:#222}
h1{border-bottom:1px solid #ddd;padding-bottom:.3em}
code{background:#f4f4f4;padding:.1em .3em;border-radius:3px}
</style>
</head>
<body>
<h1>It works</h1>
<p>This document root has no <code>index.html</code> yet. Drop one in
to replace this page.</p>
</body>
</html>
`

// NotFoundBody is the canned 404 body.
const NotFoundBody = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>404 Not Found</title></head>
<body>
<h1>Not Found</h1>
<p>The requested resource was not found on this server.</p>
</body>
</html>
`

// ForbiddenBody is the canned 403 body.
const ForbiddenBody = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>403 Forbidden</title></head>
<body>
<h1>Forbidden</h1>
<p>You do not have permission to access this resource.</p>
</body>
</html>
`

// Canned plain-text bodies for the policy-overflow and protocol-policy
// error classes.
const (
	BodyMethodTooLong   = "method too long"
	BodyTargetTooLong   = "request-target too long"
	BodyHeaderTooLong   = "header too long"
	BodyTooManyRequests = "too many requests on this connection"
	BodyOverloaded      = "server temporarily overloaded"
	BodyUnsupportedVer  = "unsupported HTTP version"
)
