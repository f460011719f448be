// Package universalauth implements the Universal Auth token exchange: a
// machine identity's client id and client secret are posted to
//
//	{baseURL}/api/v1/auth/universal-auth/login
//
// and a short-lived bearer token is returned. The credentials package calls
// this client whenever a refreshable credential needs a new token; it is
// usable on its own as well:
//
//	client := universalauth.NewClient(universalauth.WithHTTPClient(httpClient))
//	login, err := client.Login(ctx, "https://us.infisical.com", id, secret)
package universalauth
