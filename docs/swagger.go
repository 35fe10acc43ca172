// Package docs provides Swagger documentation for the API.
package docs

// @title StockPlus Backend API
// @version 1.0
// @description Retail back-office API: accounts, catalog, barcoded stock, billing and reports
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@one-green.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
