package main

// General API documentation for swaggo. Run `swag init` to generate docs.
//
// @title           llmd API
// @version         1.0
// @description     HTTP API for local LLM session management and text generation.
//
// @contact.name   llmd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
