// Package render produces the configuration artifacts operators previously
// maintained by hand: the reverse-proxy server config and the PHP upload
// policy file. Placeholders (server name, HTTPS port) come from the loaded
// stack configuration rather than manual editing.
package render

import (
	"fmt"
	"strings"

	"github.com/hhftechnology/wordpress-docker/internal/config"
)

// NginxConf renders a server config for the stock nginx image, mirroring
// the built-in proxy's route table rule for rule.
func NginxConf(cfg config.Stack) string {
	fcgiPass := fmt.Sprintf("%s:%d", cfg.AppHost, cfg.AppPort)
	redirectTarget := "https://$host$request_uri"
	if cfg.HTTPSPort != 443 {
		redirectTarget = fmt.Sprintf("https://$host:%d$request_uri", cfg.HTTPSPort)
	}

	var b strings.Builder
	b.WriteString("server {\n")
	b.WriteString("    listen 80;\n")
	b.WriteString("    server_name " + cfg.ServerName + ";\n")
	b.WriteString("    return 301 " + redirectTarget + ";\n")
	b.WriteString("}\n\n")

	b.WriteString("server {\n")
	fmt.Fprintf(&b, "    listen %d ssl;\n", cfg.HTTPSPort)
	b.WriteString("    http2 on;\n")
	b.WriteString("    server_name " + cfg.ServerName + ";\n\n")
	b.WriteString("    root " + cfg.DocumentRoot + ";\n")
	b.WriteString("    index index.php;\n\n")
	b.WriteString("    ssl_certificate /etc/nginx/certs/server.crt;\n")
	b.WriteString("    ssl_certificate_key /etc/nginx/certs/server.key;\n\n")
	b.WriteString("    client_max_body_size " + cfg.Upload.MaxPostSize.String() + ";\n\n")

	b.WriteString("    location = /favicon.ico {\n")
	b.WriteString("        log_not_found off;\n")
	b.WriteString("        access_log off;\n")
	b.WriteString("    }\n\n")
	b.WriteString("    location = /robots.txt {\n")
	b.WriteString("        allow all;\n")
	b.WriteString("        log_not_found off;\n")
	b.WriteString("        access_log off;\n")
	b.WriteString("    }\n\n")

	b.WriteString("    location ~* \\.(js|css|png|jpg|jpeg|gif|ico|svg|webp|woff|woff2|ttf|eot|otf|mp4|webm)$ {\n")
	b.WriteString("        expires max;\n")
	b.WriteString("        log_not_found off;\n")
	b.WriteString("    }\n\n")

	b.WriteString("    location ~ \\.php$ {\n")
	b.WriteString("        include fastcgi_params;\n")
	b.WriteString("        fastcgi_split_path_info ^(.+\\.php)(/.+)$;\n")
	b.WriteString("        fastcgi_pass " + fcgiPass + ";\n")
	b.WriteString("        fastcgi_index index.php;\n")
	b.WriteString("        fastcgi_param SCRIPT_FILENAME $document_root$fastcgi_script_name;\n")
	b.WriteString("        fastcgi_param PATH_INFO $fastcgi_path_info;\n")
	fmt.Fprintf(&b, "        fastcgi_read_timeout %d;\n", int(cfg.Upload.MaxExecution.Seconds()))
	b.WriteString("    }\n\n")

	b.WriteString("    location ~ /\\.ht {\n")
	b.WriteString("        deny all;\n")
	b.WriteString("    }\n\n")

	b.WriteString("    location / {\n")
	b.WriteString("        try_files $uri $uri/ /index.php?$args;\n")
	b.WriteString("    }\n")
	b.WriteString("}\n")
	return b.String()
}
