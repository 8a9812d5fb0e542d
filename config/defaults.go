package config

// DefaultConfigYAML 内置默认配置，外部 config.yaml 可覆盖其中任意项
var DefaultConfigYAML = []byte(`server:
  port: ":8080"
  mode: "debug"
  base_url: "http://localhost:8080"

database:
  host: "127.0.0.1"
  port: "3306"
  username: "ledger"
  password: "ledger"
  dbname: "ledger"
  charset: "utf8mb4"

jwt:
  secret: "change-me-in-production"
  access_expire_hours: 24
  refresh_expire_hours: 168

upload:
  dir: "./uploads"
  max_size_mb: 5
  allowed_types:
    - "image/jpeg"
    - "image/png"
    - "image/webp"
    - "application/pdf"

email:
  enabled: false
  host: "smtp.example.com"
  port: 465
  username: ""
  password: ""
  from: ""
`)
