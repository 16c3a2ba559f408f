package main

import _ "drying_oven/docs"

// @title                       Drying Oven API
// @version                     1.0
// @description                 Operator API of the drying oven host: cycle commands, runtime snapshot, link diagnostics and event log.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	Execute()
}
