package main

// General API documentation for swaggo. The registered document lives in
// internal/httpapi/docs and is served under /swagger/ in builds tagged swagger.
//
// @title           ocrd API
// @version         1.0
// @description     DeepSeek-OCR microservice: page and figure recognition to markdown and typed blocks.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
