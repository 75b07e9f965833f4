/*
Package clients provides the HTTP client library for the holder address registry.

RegistryClient wraps every public endpoint and maps the server's plain-text
rejections back to the registry's error values, so callers can use errors.Is
and errors.As the same way the server does:

	err := client.Register(ctx, wallet, solana)
	var conflict *interfaces.ConflictError
	if errors.As(err, &conflict) {
		fmt.Println("already registered with", conflict.Existing)
	}

MockRegistryProvider is a testify mock of the same interface.
*/
package clients
