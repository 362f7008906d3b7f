package password

import "testing"

// Cheap params so the test suite stays fast.
var testParams = Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func TestHashVerify(t *testing.T) {
	phc, err := Hash(testParams, "Johny1234!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !Verify("Johny1234!", phc) {
		t.Fatal("expected verify to succeed")
	}
	if Verify("WrongPass1234!", phc) {
		t.Fatal("expected verify to fail for wrong password")
	}
}

// Verify must accept a freshly minted PHC string for any cost parameters,
// not just the defaults; a parser regression shows up here as all-false.
func TestHashVerify_ParamsVariants(t *testing.T) {
	variants := []Params{
		{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32},
		{Memory: 16 * 1024, Time: 2, Parallelism: 2, KeyLen: 16},
		{Memory: 32 * 1024, Time: 1, Parallelism: 1, KeyLen: 64},
	}
	for _, p := range variants {
		phc, err := Hash(p, "Johny1234!")
		if err != nil {
			t.Fatalf("hash with %+v: %v", p, err)
		}
		if !Verify("Johny1234!", phc) {
			t.Fatalf("verify rejected its own hash with %+v (%s)", p, phc)
		}
		if Verify("WrongPass1234!", phc) {
			t.Fatalf("verify accepted a wrong password with %+v", p)
		}
	}
}

func TestHash_SaltedPerCall(t *testing.T) {
	a, _ := Hash(testParams, "Johny1234!")
	b, _ := Hash(testParams, "Johny1234!")
	if a == b {
		t.Fatal("two hashes of the same password must differ (random salt)")
	}
}

func TestVerify_GarbagePHC(t *testing.T) {
	for _, phc := range []string{"", "not-a-phc", "$argon2id$v=18$m=8,t=1,p=1$x$y"} {
		if Verify("Johny1234!", phc) {
			t.Fatalf("expected verify to fail for %q", phc)
		}
	}
}
