// @title                       Recipes API
// @version                     1.0
// @description                 Recipe sharing backend: recipes, ingredients, favorites, shopping cart and subscriptions.
// @BasePath                    /api
// @securityDefinitions.apikey  TokenAuth
// @in                          header
// @name                        Authorization
// @description                 Token scheme: "Token <auth_token>" (Bearer is also accepted).
package main

import "github.com/tbourn/go-recipes-backend/cmd"

func main() {
	cmd.Execute()
}
