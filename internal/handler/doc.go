// Package handler 按业务域划分 HTTP Handler 子包：
// auth、registry、reservation、billing、report。
//
// swag init 以 cmd/api-gateway/main.go 为入口扫描本目录下的注解。
package handler
