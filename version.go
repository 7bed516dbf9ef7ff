package ferry

// Release is the version of this build. Tagged builds override it with
//
//	-ldflags "-X github.com/iov-one/ferry.Release=v0.1.0"
var Release = "v0.1.0-dev"

// GitCommit is the commit of this build, set with -ldflags.
var GitCommit = ""

// Version is printed by the ferry tools.
func Version() string {
	if GitCommit == "" {
		return Release
	}
	return Release + "+" + GitCommit
}
