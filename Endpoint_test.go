package main

import "testing"

func TestWorkerSuffix(t *testing.T) {
	cases := []struct {
		user   string
		suffix string
	}{
		{"user.worker", "worker"},
		{"user", ""},
		{"user.", ""},
		{"user.rig.0", "rig.0"},
	}
	for _, c := range cases {
		endpoint := &PoolEndpoint{User: c.user}
		if got := endpoint.WorkerSuffix(); got != c.suffix {
			t.Fatalf("WorkerSuffix(%q) = %q, want %q", c.user, got, c.suffix)
		}
	}
}

func TestResolveEndpointsLiteral(t *testing.T) {
	endpoints, err := resolveEndpoints("127.0.0.1", 3333)
	if err != nil {
		t.Fatal(err)
	}
	if len(endpoints) != 1 || endpoints[0] != "127.0.0.1:3333" {
		t.Fatalf("unexpected endpoints: %v", endpoints)
	}
}
