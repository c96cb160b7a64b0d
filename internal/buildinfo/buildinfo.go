// Package buildinfo holds the banners printed by the binaries.
package buildinfo

const ProjectName = "balloon-bomb"

const GithubURL = "https://github.com/bloops-games/balloonbomb"

const Graffiti = `
  ___       _ _                    ___            _
 | _ ) __ _| | |___  ___ _ _     | _ ) ___ _ __ | |__
 | _ \/ _' | | / _ \/ _ \ ' \    | _ \/ _ \ '  \| '_ \
 |___/\__,_|_|_\___/\___/_||_|   |___/\___/_|_|_|_.__/
`

// GreetingCLI takes the project name, version and repository URL.
const GreetingCLI = `%s %s
%s

`
