package db

import "fmt"

const (
	s3Region   = "us-east-1"
	s3UseSSL   = false
	s3URLStyle = "path"
)

// S3Setup returns the statements enabling httpfs against an S3-compatible
// endpoint (host[:port], no scheme). Region, SSL and URL style are fixed.
func S3Setup(endpoint, accessKey, secretKey string) []string {
	return []string{
		"INSTALL httpfs",
		"LOAD httpfs",
		fmt.Sprintf("SET s3_endpoint=%s", quoteLiteral(endpoint)),
		fmt.Sprintf("SET s3_region=%s", quoteLiteral(s3Region)),
		fmt.Sprintf("SET s3_use_ssl=%t", s3UseSSL),
		fmt.Sprintf("SET s3_url_style=%s", quoteLiteral(s3URLStyle)),
		fmt.Sprintf("SET s3_access_key_id=%s", quoteLiteral(accessKey)),
		fmt.Sprintf("SET s3_secret_access_key=%s", quoteLiteral(secretKey)),
	}
}
