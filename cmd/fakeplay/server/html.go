package server

import (
	"fmt"
	"html"
)

// pageTemplate is the result page shown to the browser. The status class
// lets browser tests check what the server recorded.
const pageTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>Play Test Runner - %[1]s</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            max-width: 800px;
            margin: 50px auto;
            padding: 20px;
            background: #f5f5f5;
        }
        .container {
            background: white;
            padding: 30px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        h1 { color: #333; margin-bottom: 10px; }
        #status { margin: 20px 0; padding: 15px; border-radius: 4px; font-weight: 500; }
        .status-passed { background: #d4edda; color: #155724; }
        .status-failed { background: #f8d7da; color: #721c24; }
        .status-running { background: #fff3cd; color: #856404; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%[1]s</h1>
        <div id="status" class="status-%[2]s">%[2]s</div>
    </div>
</body>
</html>
`

func renderPage(title, status string) string {
	return fmt.Sprintf(pageTemplate, html.EscapeString(title), html.EscapeString(status))
}
