package api

import (
	"runtime"

	"github.com/gin-gonic/gin"
)

// 构建信息，通过 -ldflags "-X" 注入
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// APIVersion 当前 API 版本
const APIVersion = "v1"

// VersionInfo 版本信息
type VersionInfo struct {
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	BuildTime  string `json:"buildTime"`
	APIVersion string `json:"apiVersion"`
	GoVersion  string `json:"goVersion"`
}

// GetVersionInfo 返回构建信息
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:    Version,
		Commit:     Commit,
		BuildTime:  BuildTime,
		APIVersion: APIVersion,
		GoVersion:  runtime.Version(),
	}
}

// VersionMiddleware 在响应头中标注 API 版本
func VersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("API-Version", APIVersion)
		c.Next()
	}
}

// VersionHandler 版本信息
func VersionHandler(c *gin.Context) {
	Success(c, GetVersionInfo())
}
