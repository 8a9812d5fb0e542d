// Package web 嵌入前端静态资源
package web

import "embed"

// StaticFS 嵌入的静态文件
//
//go:embed index.html
var StaticFS embed.FS
